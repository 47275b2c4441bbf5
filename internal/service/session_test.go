package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"tempmail/bot/internal/domain"
	"tempmail/bot/internal/monitoring"
	"tempmail/bot/internal/provider"
	"tempmail/bot/internal/storage/memory"
	"tempmail/bot/internal/token"
)

// promauto 指标注册到全局 registry，整个测试包共用一份
var testMetrics = monitoring.NewMetrics()

// MockProvider 模拟服务商接口
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Domains(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProvider) CreateAccount(ctx context.Context, address, password string) (*provider.Account, error) {
	args := m.Called(ctx, address, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Account), args.Error(1)
}

func (m *MockProvider) Authenticate(ctx context.Context, address, password string) (string, error) {
	args := m.Called(ctx, address, password)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) ListMessages(ctx context.Context, bearer string) ([]provider.MessageSummary, error) {
	args := m.Called(ctx, bearer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.MessageSummary), args.Error(1)
}

func (m *MockProvider) GetMessage(ctx context.Context, bearer, messageID string) (*provider.Message, error) {
	args := m.Called(ctx, bearer, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Message), args.Error(1)
}

func (m *MockProvider) DeleteMessage(ctx context.Context, bearer, messageID string) error {
	args := m.Called(ctx, bearer, messageID)
	return args.Error(0)
}

func newSessionService(api provider.API) (*SessionService, *memory.Store) {
	store := memory.NewStore()
	return NewSessionService(store, api, testMetrics, zap.NewNop()), store
}

func TestSessionServiceCreate(t *testing.T) {
	api := new(MockProvider)
	api.On("Domains", mock.Anything).Return([]string{"temp.mail"}, nil)
	api.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.Account{ID: "acc1", Address: "x@temp.mail"}, nil)
	api.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).
		Return("bearer-jwt", nil)

	svc, store := newSessionService(api)

	session, recovery, err := svc.Create(context.Background(), 100)
	assert.NoError(t, err)
	assert.NotNil(t, session)
	assert.NotEmpty(t, recovery)

	t.Run("会话写入存储", func(t *testing.T) {
		stored, err := store.GetSession(100)
		assert.NoError(t, err)
		assert.Equal(t, session.Credential, stored.Credential)
		assert.Equal(t, "bearer-jwt", stored.Credential.Bearer)
		assert.Contains(t, stored.Credential.Address, "@temp.mail")
	})

	t.Run("恢复令牌可解码回同一凭据", func(t *testing.T) {
		decoded, err := token.Decode(recovery)
		assert.NoError(t, err)
		assert.Equal(t, session.Credential, decoded)
	})
}

func TestSessionServiceCreateReplacesPrevious(t *testing.T) {
	api := new(MockProvider)
	api.On("Domains", mock.Anything).Return([]string{"temp.mail"}, nil)
	api.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.Account{ID: "acc", Address: "x@temp.mail"}, nil)
	api.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).
		Return("bearer-jwt", nil)

	svc, store := newSessionService(api)

	first, _, err := svc.Create(context.Background(), 7)
	assert.NoError(t, err)
	second, _, err := svc.Create(context.Background(), 7)
	assert.NoError(t, err)

	// 同一用户只保留第二次创建的会话
	assert.NotEqual(t, first.Credential.Address, second.Credential.Address)
	stored, err := store.GetSession(7)
	assert.NoError(t, err)
	assert.Equal(t, second.Credential, stored.Credential)
	assert.Equal(t, 1, store.Count())
}

func TestSessionServiceCreateProviderDown(t *testing.T) {
	api := new(MockProvider)
	api.On("Domains", mock.Anything).Return(nil, provider.ErrUnavailable)

	svc, store := newSessionService(api)

	_, _, err := svc.Create(context.Background(), 1)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 0, store.Count())
}

func TestSessionServiceRestore(t *testing.T) {
	credential := domain.MailboxCredential{
		Address:  "old@temp.mail",
		Password: "oldpassword1",
		Bearer:   "expired-bearer",
	}
	recovery, err := token.Encode(credential)
	assert.NoError(t, err)

	t.Run("恢复成功并换取新 Bearer", func(t *testing.T) {
		api := new(MockProvider)
		api.On("Authenticate", mock.Anything, "old@temp.mail", "oldpassword1").
			Return("fresh-bearer", nil)

		svc, store := newSessionService(api)

		session, err := svc.Restore(context.Background(), 42, recovery)
		assert.NoError(t, err)
		assert.Equal(t, "old@temp.mail", session.Credential.Address)
		assert.Equal(t, "fresh-bearer", session.Credential.Bearer)

		stored, err := store.GetSession(42)
		assert.NoError(t, err)
		assert.Equal(t, session.Credential, stored.Credential)
	})

	t.Run("非法令牌不触碰现有会话", func(t *testing.T) {
		api := new(MockProvider)
		svc, store := newSessionService(api)

		existing := &domain.MailboxSession{
			OwnerID:    42,
			Credential: credential,
			CreatedAt:  time.Now().UTC(),
		}
		assert.NoError(t, store.SaveSession(existing))

		_, err := svc.Restore(context.Background(), 42, "garbage-token")
		assert.ErrorIs(t, err, ErrInvalidToken)

		stored, err := store.GetSession(42)
		assert.NoError(t, err)
		assert.Equal(t, credential, stored.Credential)
		api.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("服务商拒绝凭据", func(t *testing.T) {
		api := new(MockProvider)
		api.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).
			Return("", provider.ErrUnauthorized)

		svc, store := newSessionService(api)

		_, err := svc.Restore(context.Background(), 42, recovery)
		assert.ErrorIs(t, err, ErrProviderRejected)
		assert.Equal(t, 0, store.Count())
	})

	t.Run("服务商不可达", func(t *testing.T) {
		api := new(MockProvider)
		api.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).
			Return("", provider.ErrUnavailable)

		svc, _ := newSessionService(api)

		_, err := svc.Restore(context.Background(), 42, recovery)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})
}

func TestSessionServiceGet(t *testing.T) {
	api := new(MockProvider)
	svc, store := newSessionService(api)

	t.Run("没有会话返回 ErrNoActiveSession", func(t *testing.T) {
		_, err := svc.Get(5)
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("存在会话时原样返回", func(t *testing.T) {
		session := &domain.MailboxSession{
			OwnerID: 5,
			Credential: domain.MailboxCredential{
				Address:  "a@temp.mail",
				Password: "password1234",
				Bearer:   "bearer",
			},
			CreatedAt: time.Now().UTC(),
		}
		assert.NoError(t, store.SaveSession(session))

		got, err := svc.Get(5)
		assert.NoError(t, err)
		assert.Equal(t, session.Credential, got.Credential)
	})
}

func TestSessionServiceDrop(t *testing.T) {
	api := new(MockProvider)
	svc, store := newSessionService(api)

	t.Run("丢弃后会话不复存在", func(t *testing.T) {
		session := &domain.MailboxSession{
			OwnerID: 6,
			Credential: domain.MailboxCredential{
				Address:  "a@temp.mail",
				Password: "password1234",
				Bearer:   "bearer",
			},
			CreatedAt: time.Now().UTC(),
		}
		assert.NoError(t, store.SaveSession(session))

		svc.Drop(6)

		_, err := svc.Get(6)
		assert.ErrorIs(t, err, ErrNoActiveSession)
		assert.Equal(t, 0, store.Count())
	})

	t.Run("没有会话时为空操作", func(t *testing.T) {
		svc.Drop(42)
		assert.Equal(t, 0, store.Count())
	})
}

// signedBearer 构造一个带指定过期时间的 HS256 令牌。
func signedBearer(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt)}
	bearer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return bearer
}

func TestSessionServiceRefresh(t *testing.T) {
	credential := domain.MailboxCredential{
		Address:  "a@temp.mail",
		Password: "password1234",
	}

	t.Run("未过期的 Bearer 原样放行", func(t *testing.T) {
		api := new(MockProvider)
		svc, store := newSessionService(api)

		c := credential
		c.Bearer = signedBearer(t, time.Now().Add(time.Hour))
		session := &domain.MailboxSession{OwnerID: 9, Credential: c, CreatedAt: time.Now().UTC()}
		assert.NoError(t, store.SaveSession(session))

		got, err := svc.Refresh(context.Background(), session)
		assert.NoError(t, err)
		assert.Equal(t, c.Bearer, got.Credential.Bearer)
		api.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("非 JWT 的 Bearer 原样放行", func(t *testing.T) {
		api := new(MockProvider)
		svc, _ := newSessionService(api)

		c := credential
		c.Bearer = "opaque-bearer"
		session := &domain.MailboxSession{OwnerID: 9, Credential: c, CreatedAt: time.Now().UTC()}

		got, err := svc.Refresh(context.Background(), session)
		assert.NoError(t, err)
		assert.Equal(t, "opaque-bearer", got.Credential.Bearer)
	})

	t.Run("过期的 Bearer 触发重新认证", func(t *testing.T) {
		api := new(MockProvider)
		api.On("Authenticate", mock.Anything, "a@temp.mail", "password1234").
			Return("renewed-bearer", nil)

		svc, store := newSessionService(api)

		c := credential
		c.Bearer = signedBearer(t, time.Now().Add(-time.Minute))
		session := &domain.MailboxSession{OwnerID: 9, Credential: c, CreatedAt: time.Now().UTC()}
		assert.NoError(t, store.SaveSession(session))

		got, err := svc.Refresh(context.Background(), session)
		assert.NoError(t, err)
		assert.Equal(t, "renewed-bearer", got.Credential.Bearer)

		stored, err := store.GetSession(9)
		assert.NoError(t, err)
		assert.Equal(t, "renewed-bearer", stored.Credential.Bearer)
	})

	t.Run("重新认证被拒绝映射为 ErrUnauthenticated", func(t *testing.T) {
		api := new(MockProvider)
		api.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).
			Return("", provider.ErrUnauthorized)

		svc, store := newSessionService(api)

		c := credential
		c.Bearer = signedBearer(t, time.Now().Add(-time.Minute))
		session := &domain.MailboxSession{OwnerID: 9, Credential: c, CreatedAt: time.Now().UTC()}
		assert.NoError(t, store.SaveSession(session))

		_, err := svc.Refresh(context.Background(), session)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}
