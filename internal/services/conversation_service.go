package services

import (
	"context"
	"strings"
	"time"

	"github.com/Kazorio/translation-app/internal/metrics"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/realtime"
	pgrepo "github.com/Kazorio/translation-app/internal/repositories/postgres"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
)

const historyLimit = 200

type ConversationService interface {
	// Append stores e and broadcasts it to the room. The returned row carries
	// the server-assigned id and creation time.
	Append(ctx context.Context, e *models.ConversationEntry) (*models.ConversationEntry, error)
	History(ctx context.Context, roomID string) ([]models.ConversationEntry, error)
	Get(ctx context.Context, id string) (*models.ConversationEntry, error)
}

type conversationService struct {
	convos  pgrepo.ConversationRepo
	broker  realtime.Broker
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func NewConversationService(convos pgrepo.ConversationRepo, broker realtime.Broker, m *metrics.Metrics, log *logrus.Logger) ConversationService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &conversationService{
		convos:  convos,
		broker:  broker,
		metrics: m,
		log:     log.WithField("component", "conversation_service"),
	}
}

func (s *conversationService) Append(ctx context.Context, e *models.ConversationEntry) (*models.ConversationEntry, error) {
	const op = "ConversationService.Append"

	if e == nil || !models.ValidRoomID(e.RoomID) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid room_id is required", nil)
	}
	if strings.TrimSpace(e.OriginalText) == "" || e.SourceLanguage == "" || e.TargetLanguage == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "original_text, source_language and target_language are required", nil)
	}
	if e.Speaker == "" {
		e.Speaker = models.SpeakerSelf
	}
	if !e.Speaker.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "speaker must be self or partner", nil)
	}

	row := *e
	row.ID = ""
	row.CreatedAt = time.Time{}
	row.IsMine = false

	start := time.Now()
	err := s.convos.Insert(ctx, &row)
	s.metrics.ObserveStage("persist", start, err)
	if err != nil {
		return nil, utils.E(utils.CodePersistence, op, "failed to save message", err)
	}

	if s.broker != nil {
		if err := s.broker.PublishInsert(ctx, &row); err != nil {
			// the row is stored; late joiners still get it from history
			s.log.WithError(err).WithFields(logrus.Fields{
				"room_id":  row.RoomID,
				"entry_id": row.ID,
			}).Warn("broadcast failed")
		}
	}
	return &row, nil
}

func (s *conversationService) History(ctx context.Context, roomID string) ([]models.ConversationEntry, error) {
	const op = "ConversationService.History"

	if !models.ValidRoomID(roomID) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid room_id is required", nil)
	}
	rows, err := s.convos.ListByRoom(ctx, roomID, historyLimit)
	if err != nil {
		return nil, utils.E(utils.CodePersistence, op, "failed to load conversation history", err)
	}
	return rows, nil
}

func (s *conversationService) Get(ctx context.Context, id string) (*models.ConversationEntry, error) {
	const op = "ConversationService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	row, err := s.convos.GetByID(ctx, id)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, utils.E(utils.CodeNotFound, op, "entry not found", err)
		}
		return nil, utils.E(utils.CodePersistence, op, "failed to load entry", err)
	}
	return row, nil
}
