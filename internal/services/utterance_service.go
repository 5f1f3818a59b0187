package services

import (
	"context"
	"time"

	"github.com/Kazorio/translation-app/internal/audio"
	"github.com/Kazorio/translation-app/internal/models"
	mongorepo "github.com/Kazorio/translation-app/internal/repositories/mongo"
	"github.com/Kazorio/translation-app/internal/storage"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/google/uuid"
)

const maxUtteranceBytes = 10 << 20

// ArchiveQueue hands a stored utterance to the archive workers.
type ArchiveQueue interface {
	Enqueue(ctx context.Context, utteranceID, roomID string) error
}

type UtteranceService interface {
	Submit(ctx context.Context, roomID, speakerID, language string, wav []byte) (*models.UtteranceAudio, error)
	Get(ctx context.Context, roomID, utteranceID string) (*models.UtteranceAudio, error)
	// PlaybackURL returns a short-lived URL for an archived recording.
	PlaybackURL(ctx context.Context, roomID, utteranceID string) (string, error)
	List(ctx context.Context, roomID string) ([]models.UtteranceAudio, error)
}

type utteranceService struct {
	utterances mongorepo.UtteranceRepository
	queue      ArchiveQueue
	signer     storage.Signer
	ttl        time.Duration
}

func NewUtteranceService(utterances mongorepo.UtteranceRepository, queue ArchiveQueue, signer storage.Signer, ttl time.Duration) UtteranceService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &utteranceService{utterances: utterances, queue: queue, signer: signer, ttl: ttl}
}

func (s *utteranceService) Submit(ctx context.Context, roomID, speakerID, language string, wav []byte) (*models.UtteranceAudio, error) {
	const op = "UtteranceService.Submit"

	if !models.ValidRoomID(roomID) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid room_id is required", nil)
	}
	if len(wav) > maxUtteranceBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "recording is too large", nil)
	}
	info, err := audio.ReadWAVInfo(wav)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio must be a 16-bit PCM WAV", err)
	}

	now := time.Now().UTC()
	doc := &models.UtteranceAudio{
		UtteranceID: uuid.NewString(),
		RoomID:      roomID,
		SpeakerID:   speakerID,
		Language:    language,
		AudioWAV:    wav,
		DurationS:   info.Duration,
		SampleRate:  info.SampleRate,
		Status:      models.ArchivePending,
		Timestamp:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.utterances.Insert(ctx, doc); err != nil {
		return nil, utils.E(utils.CodePersistence, op, "failed to store recording", err)
	}

	if err := s.queue.Enqueue(ctx, doc.UtteranceID, roomID); err != nil {
		_ = s.utterances.MarkFailed(ctx, doc.UtteranceID)
		return nil, utils.E(utils.CodeUnavailable, op, "failed to queue recording for archive", err)
	}
	doc.AudioWAV = nil
	return doc, nil
}

func (s *utteranceService) Get(ctx context.Context, roomID, utteranceID string) (*models.UtteranceAudio, error) {
	const op = "UtteranceService.Get"

	if utteranceID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "utterance id is required", nil)
	}
	u, err := s.utterances.GetByUtteranceID(ctx, utteranceID)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, utils.E(utils.CodeNotFound, op, "recording not found", err)
		}
		return nil, utils.E(utils.CodePersistence, op, "failed to load recording", err)
	}
	if u.RoomID != roomID {
		return nil, utils.E(utils.CodeNotFound, op, "recording not found", nil)
	}
	u.AudioWAV = nil
	return u, nil
}

func (s *utteranceService) PlaybackURL(ctx context.Context, roomID, utteranceID string) (string, error) {
	const op = "UtteranceService.PlaybackURL"

	u, err := s.Get(ctx, roomID, utteranceID)
	if err != nil {
		return "", err
	}
	if u.Status != models.ArchiveArchived {
		return "", utils.E(utils.CodeNotFound, op, "recording is not archived yet", nil)
	}
	if s.signer == nil {
		return "", utils.E(utils.CodeUnavailable, op, "archive storage is not configured", nil)
	}
	url, err := s.signer.SignedGetURL(ctx, storage.UtteranceObject(u.RoomID, u.UtteranceID), 15*time.Minute)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to sign recording url", err)
	}
	return url, nil
}

func (s *utteranceService) List(ctx context.Context, roomID string) ([]models.UtteranceAudio, error) {
	const op = "UtteranceService.List"

	if !models.ValidRoomID(roomID) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid room_id is required", nil)
	}
	rows, err := s.utterances.ListByRoom(ctx, roomID, 50)
	if err != nil {
		return nil, utils.E(utils.CodePersistence, op, "failed to list recordings", err)
	}
	return rows, nil
}
