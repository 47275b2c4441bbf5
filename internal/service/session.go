package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tempmail/bot/internal/cache"
	"tempmail/bot/internal/domain"
	"tempmail/bot/internal/monitoring"
	"tempmail/bot/internal/provider"
	"tempmail/bot/internal/storage"
	"tempmail/bot/internal/token"
)

const (
	localPartLength = 8
	passwordLength  = 12
	domainCacheTTL  = 10 * time.Minute
	// bearerExpirySkew 在令牌真正过期前提前刷新的余量
	bearerExpirySkew = 30 * time.Second
)

// SessionService 负责邮箱会话的创建、恢复与读取。
//
// 同一用户的创建/恢复/刷新由用户级互斥锁串行化，
// 不同用户之间完全并行。
type SessionService struct {
	repo    storage.SessionRepository
	api     provider.API
	domains *cache.DomainCache
	metrics *monitoring.Metrics
	logger  *zap.Logger

	randMu        sync.Mutex
	random        *rand.Rand
	tokenAlphabet []rune

	ownerMu sync.Mutex
	owners  map[int64]*sync.Mutex
}

// NewSessionService 创建会话业务服务。
func NewSessionService(repo storage.SessionRepository, api provider.API, metrics *monitoring.Metrics, logger *zap.Logger) *SessionService {
	return &SessionService{
		repo:    repo,
		api:     api,
		domains: cache.NewDomainCache(domainCacheTTL),
		metrics: metrics,
		logger:  logger,
		random:  rand.New(rand.NewSource(time.Now().UnixNano())),
		tokenAlphabet: []rune("abcdefghijklmnopqrstuvwxyz" +
			"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"),
		owners: make(map[int64]*sync.Mutex),
	}
}

// Create 注册一个全新的服务商邮箱并建立会话。
//
// 返回值中的恢复令牌只在此处出现一次，系统不保存也不再展示；
// 调用方负责把它原样交给用户并提示妥善保管。同一用户的旧会话
// 会被新会话整体替换。
func (s *SessionService) Create(ctx context.Context, ownerID int64) (*domain.MailboxSession, string, error) {
	unlock := s.lockOwner(ownerID)
	defer unlock()

	domains, err := s.resolveDomains(ctx)
	if err != nil {
		return nil, "", err
	}

	address := fmt.Sprintf("%s@%s", s.generateLocalPart(), s.pickDomain(domains))
	password := s.generateSecret(passwordLength)

	if _, err := s.api.CreateAccount(ctx, address, password); err != nil {
		s.metrics.ProviderRequestsTotal.WithLabelValues("create_account", "error").Inc()
		return nil, "", mapProviderErr(err)
	}
	s.metrics.ProviderRequestsTotal.WithLabelValues("create_account", "ok").Inc()

	bearer, err := s.api.Authenticate(ctx, address, password)
	if err != nil {
		s.metrics.ProviderRequestsTotal.WithLabelValues("authenticate", "error").Inc()
		return nil, "", mapProviderErr(err)
	}
	s.metrics.ProviderRequestsTotal.WithLabelValues("authenticate", "ok").Inc()

	credential := domain.MailboxCredential{
		Address:  address,
		Password: password,
		Bearer:   bearer,
	}
	if err := credential.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	recovery, err := token.Encode(credential)
	if err != nil {
		return nil, "", err
	}

	session := &domain.MailboxSession{
		OwnerID:    ownerID,
		Credential: credential,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.SaveSession(session); err != nil {
		return nil, "", err
	}

	s.metrics.SessionsCreated.Inc()
	s.metrics.SessionsActive.Set(float64(s.repo.Count()))
	s.logger.Info("mailbox session created",
		zap.Int64("owner_id", ownerID),
		zap.String("address", address),
	)
	return session, recovery, nil
}

// Restore 用恢复令牌重建会话。
//
// 令牌解码失败返回 ErrInvalidToken，且不触碰该用户的现有会话；
// 凭据被服务商拒绝返回 ErrProviderRejected。恢复成功后总是换取
// 新的 Bearer（令牌里存的那个可能早已过期）。
func (s *SessionService) Restore(ctx context.Context, ownerID int64, recovery string) (*domain.MailboxSession, error) {
	credential, err := token.Decode(recovery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	unlock := s.lockOwner(ownerID)
	defer unlock()

	bearer, err := s.api.Authenticate(ctx, credential.Address, credential.Password)
	if err != nil {
		s.metrics.ProviderRequestsTotal.WithLabelValues("authenticate", "error").Inc()
		if errors.Is(err, provider.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	s.metrics.ProviderRequestsTotal.WithLabelValues("authenticate", "ok").Inc()

	credential.Bearer = bearer
	session := &domain.MailboxSession{
		OwnerID:    ownerID,
		Credential: credential,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.SaveSession(session); err != nil {
		return nil, err
	}

	s.metrics.SessionsRestored.Inc()
	s.metrics.SessionsActive.Set(float64(s.repo.Count()))
	s.logger.Info("mailbox session restored",
		zap.Int64("owner_id", ownerID),
		zap.String("address", credential.Address),
	)
	return session, nil
}

// Get 返回用户当前的活动会话，不做任何修改。
func (s *SessionService) Get(ownerID int64) (*domain.MailboxSession, error) {
	session, err := s.repo.GetSession(ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	return session, nil
}

// Drop 丢弃用户的当前会话。
//
// 用于服务商已拒绝凭据的场合：会话留在存储里只会反复失败，
// 丢弃后用户会得到明确的 /new 或 /repair 提示。没有会话时为空操作。
func (s *SessionService) Drop(ownerID int64) {
	unlock := s.lockOwner(ownerID)
	defer unlock()

	if err := s.repo.DeleteSession(ownerID); err != nil {
		return
	}

	s.metrics.SessionsActive.Set(float64(s.repo.Count()))
	s.logger.Info("mailbox session dropped", zap.Int64("owner_id", ownerID))
}

// Refresh 在 Bearer 过期或临近过期时用存储的地址密码重新认证。
//
// 对 Bearer 只做未验签的声明解析：我们不是令牌的受众，
// 只关心 exp 何时到期。没有 exp 声明或不是 JWT 的令牌原样放行，
// 真正失效时由后续请求的 401 兜底。
func (s *SessionService) Refresh(ctx context.Context, session *domain.MailboxSession) (*domain.MailboxSession, error) {
	if !bearerExpiring(session.Credential.Bearer) {
		return session, nil
	}

	unlock := s.lockOwner(session.OwnerID)
	defer unlock()

	// 持锁后重查，其他指令可能已经替换了会话
	current, err := s.repo.GetSession(session.OwnerID)
	if err == nil && current.Credential.Bearer != session.Credential.Bearer {
		return current, nil
	}

	bearer, err := s.api.Authenticate(ctx, session.Credential.Address, session.Credential.Password)
	if err != nil {
		s.metrics.ProviderRequestsTotal.WithLabelValues("authenticate", "error").Inc()
		if errors.Is(err, provider.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	s.metrics.ProviderRequestsTotal.WithLabelValues("authenticate", "ok").Inc()

	fresh := session.WithBearer(bearer, time.Now().UTC())
	if err := s.repo.SaveSession(fresh); err != nil {
		return nil, err
	}

	s.logger.Debug("session bearer refreshed", zap.Int64("owner_id", session.OwnerID))
	return fresh, nil
}

// lockOwner 获取指定用户的互斥锁，返回解锁函数。
func (s *SessionService) lockOwner(ownerID int64) func() {
	s.ownerMu.Lock()
	mu, ok := s.owners[ownerID]
	if !ok {
		mu = &sync.Mutex{}
		s.owners[ownerID] = mu
	}
	s.ownerMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// resolveDomains 返回可用域名列表，优先使用缓存。
func (s *SessionService) resolveDomains(ctx context.Context) ([]string, error) {
	if domains, fresh := s.domains.Get(); fresh {
		return domains, nil
	}

	domains, err := s.api.Domains(ctx)
	if err != nil {
		s.metrics.ProviderRequestsTotal.WithLabelValues("domains", "error").Inc()
		// 拉取失败时退回过期缓存
		if stale, _ := s.domains.Get(); len(stale) > 0 {
			s.logger.Warn("using stale provider domain list", zap.Error(err))
			return stale, nil
		}
		return nil, mapProviderErr(err)
	}
	s.metrics.ProviderRequestsTotal.WithLabelValues("domains", "ok").Inc()

	s.domains.Set(domains)
	return domains, nil
}

// pickDomain 从候选域名中随机挑选一个。
func (s *SessionService) pickDomain(domains []string) string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return domains[s.random.Intn(len(domains))]
}

// generateLocalPart 生成随机邮箱前缀。
func (s *SessionService) generateLocalPart() string {
	base := strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return base[:localPartLength]
}

// generateSecret 生成随机账户密码。
func (s *SessionService) generateSecret(length int) string {
	s.randMu.Lock()
	defer s.randMu.Unlock()

	b := make([]rune, length)
	for i := 0; i < length; i++ {
		b[i] = s.tokenAlphabet[s.random.Intn(len(s.tokenAlphabet))]
	}
	return string(b)
}

// bearerExpiring 报告 Bearer 的 exp 声明是否已到期或临近到期。
func bearerExpiring(bearer string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(bearer, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < bearerExpirySkew
}

// mapProviderErr 把服务商错误折叠为业务层分类。
func mapProviderErr(err error) error {
	if errors.Is(err, provider.ErrUnauthorized) {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
