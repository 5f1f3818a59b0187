package services

import (
	"context"
	"sync"
	"time"

	"github.com/Kazorio/translation-app/internal/models"
	"github.com/stretchr/testify/mock"
)

type mockConversationRepo struct{ mock.Mock }

func (m *mockConversationRepo) Insert(ctx context.Context, e *models.ConversationEntry) error {
	args := m.Called(ctx, e)
	if args.Error(0) == nil {
		e.ID = "row-1"
		e.CreatedAt = time.Unix(100, 0).UTC()
	}
	return args.Error(0)
}

func (m *mockConversationRepo) ListByRoom(ctx context.Context, roomID string, limit int) ([]models.ConversationEntry, error) {
	args := m.Called(ctx, roomID, limit)
	rows, _ := args.Get(0).([]models.ConversationEntry)
	return rows, args.Error(1)
}

func (m *mockConversationRepo) GetByID(ctx context.Context, id string) (*models.ConversationEntry, error) {
	args := m.Called(ctx, id)
	row, _ := args.Get(0).(*models.ConversationEntry)
	return row, args.Error(1)
}

type mockSTT struct{ mock.Mock }

func (m *mockSTT) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	args := m.Called(ctx, audio, language)
	return args.String(0), args.Get(1).(float64), args.Error(2)
}

func (m *mockSTT) Close() error { return nil }

type mockTTS struct{ mock.Mock }

func (m *mockTTS) Synthesize(ctx context.Context, text, language string) ([]byte, string, error) {
	args := m.Called(ctx, text, language)
	b, _ := args.Get(0).([]byte)
	return b, args.String(1), args.Error(2)
}

func (m *mockTTS) Close() error { return nil }

type mockTranslator struct{ mock.Mock }

func (m *mockTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	args := m.Called(ctx, text, from, to)
	return args.String(0), args.Error(1)
}

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	json map[string]any
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, json: map[string]any{}}
}

func (c *memCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	v, ok := c.json[key]
	if !ok {
		return false, nil
	}
	if p, ok := dst.(*cachedAudio); ok {
		*p = v.(cachedAudio)
	}
	return true, nil
}

func (c *memCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.json[key] = val
	return nil
}

func (c *memCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) SetBytes(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[key] = val
	return nil
}

func (c *memCache) Del(ctx context.Context, keys ...string) error { return nil }

type mockPrefRepo struct{ mock.Mock }

func (m *mockPrefRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.DevicePreference, error) {
	args := m.Called(ctx, deviceID)
	p, _ := args.Get(0).(*models.DevicePreference)
	return p, args.Error(1)
}

func (m *mockPrefRepo) EnsureSpeakerID(ctx context.Context, deviceID, speakerID string) (string, error) {
	args := m.Called(ctx, deviceID, speakerID)
	return args.String(0), args.Error(1)
}

func (m *mockPrefRepo) SetLanguage(ctx context.Context, deviceID string, lang *models.LanguageOption) error {
	return m.Called(ctx, deviceID, lang).Error(0)
}

func (m *mockPrefRepo) SetAudioEnabled(ctx context.Context, deviceID string, enabled bool) error {
	return m.Called(ctx, deviceID, enabled).Error(0)
}

type mockUtteranceRepo struct{ mock.Mock }

func (m *mockUtteranceRepo) Insert(ctx context.Context, u *models.UtteranceAudio) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUtteranceRepo) GetByUtteranceID(ctx context.Context, utteranceID string) (*models.UtteranceAudio, error) {
	args := m.Called(ctx, utteranceID)
	u, _ := args.Get(0).(*models.UtteranceAudio)
	return u, args.Error(1)
}

func (m *mockUtteranceRepo) MarkArchived(ctx context.Context, utteranceID, objectPath string) error {
	return m.Called(ctx, utteranceID, objectPath).Error(0)
}

func (m *mockUtteranceRepo) MarkFailed(ctx context.Context, utteranceID string) error {
	return m.Called(ctx, utteranceID).Error(0)
}

func (m *mockUtteranceRepo) ListByRoom(ctx context.Context, roomID string, limit int64) ([]models.UtteranceAudio, error) {
	args := m.Called(ctx, roomID, limit)
	rows, _ := args.Get(0).([]models.UtteranceAudio)
	return rows, args.Error(1)
}

type mockArchiveQueue struct{ mock.Mock }

func (m *mockArchiveQueue) Enqueue(ctx context.Context, utteranceID, roomID string) error {
	return m.Called(ctx, utteranceID, roomID).Error(0)
}

type fakeSigner struct{ object string }

func (f *fakeSigner) SignedGetURL(ctx context.Context, object string, ttl time.Duration) (string, error) {
	f.object = object
	return "https://signed.example/" + object, nil
}
