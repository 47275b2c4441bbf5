package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"tempmail/bot/internal/cache"
	"tempmail/bot/internal/provider"
	"tempmail/bot/internal/storage"
)

// readinessCacheTTL 限制就绪检查访问服务商的频率：平台探测通常
// 每几秒一次，直连服务商会白白消耗限流额度。
const readinessCacheTTL = 5 * time.Minute

// HealthChecker 健康检查器
type HealthChecker struct {
	health  healthcheck.Handler
	api     provider.API
	repo    storage.SessionRepository
	domains *cache.DomainCache
	logger  *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(api provider.API, repo storage.SessionRepository, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health:  healthcheck.NewHandler(),
		api:     api,
		repo:    repo,
		domains: cache.NewDomainCache(readinessCacheTTL),
		logger:  logger,
	}

	// 添加健康检查
	hc.addChecks()

	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	// goroutine 泄漏检查
	hc.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(500))

	// 会话存储检查
	hc.health.AddLivenessCheck("session-store", func() error {
		_ = hc.repo.Count()
		return nil
	})

	// 邮件服务商可达性检查
	hc.health.AddReadinessCheck("mail-provider", ProviderHealthCheck(hc.api, hc.domains))
}

// LiveHandler 返回存活探针处理器
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 返回就绪探针处理器
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}

// ProviderHealthCheck 邮件服务商健康检查。
//
// 成功结果缓存一段时间，缓存新鲜期内的探测不再访问服务商。
func ProviderHealthCheck(api provider.API, domains *cache.DomainCache) healthcheck.Check {
	return func() error {
		if _, fresh := domains.Get(); fresh {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		list, err := api.Domains(ctx)
		if err != nil {
			return err
		}
		domains.Set(list)
		return nil
	}
}
