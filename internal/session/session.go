package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Kazorio/translation-app/internal/audio"
	"github.com/Kazorio/translation-app/internal/conversation"
	"github.com/Kazorio/translation-app/internal/metrics"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/playback"
	"github.com/Kazorio/translation-app/internal/realtime"
	"github.com/Kazorio/translation-app/internal/services"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHeartbeat = 10 * time.Second
	gestureBuffer    = 32
	leaveTimeout     = 2 * time.Second
)

// Services are the shared collaborators every session uses.
type Services struct {
	Broker        realtime.Broker
	Conversations services.ConversationService
	Speech        services.SpeechService
	Translation   services.TranslationService
	Preferences   services.PreferenceService
	// Utterances archives finished recordings when Config.Archive is set.
	Utterances services.UtteranceService
	Metrics    *metrics.Metrics
	Logger     *logrus.Logger
}

type Config struct {
	RoomID   string
	DeviceID string
	// SpeakerID overrides the device's stored id, e.g. with a JWT subject.
	SpeakerID string
	Role      models.SpeakerRole

	MinRecordingSeconds float64
	ConfigErrorDelay    time.Duration
	PipelineErrorDelay  time.Duration
	PlaybackGap         time.Duration
	Heartbeat           time.Duration
	Archive             bool
}

// Session is one participant connected to one room.
type Session struct {
	ID        string
	SpeakerID string

	cfg Config
	svc Services
	log *logrus.Entry

	remote   *Remote
	recorder *audio.Recorder
	queue    *playback.Queue
	orch     *conversation.Orchestrator
	sub      *realtime.Subscription

	ctx       context.Context
	cancel    context.CancelFunc
	gestures  chan ClientMessage
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New loads the device preferences and builds the session's recorder,
// playback queue and orchestrator. Nothing runs until Start.
func New(ctx context.Context, cfg Config, svc Services, w Writer) (*Session, error) {
	const op = "Session.New"

	if !models.ValidRoomID(cfg.RoomID) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid room_id is required", nil)
	}
	if cfg.Role == "" {
		cfg.Role = models.SpeakerSelf
	}
	if !cfg.Role.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "role must be self or partner", nil)
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.PlaybackGap <= 0 {
		cfg.PlaybackGap = playback.DefaultGap
	}

	prefs, err := svc.Preferences.Get(ctx, cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	logger := svc.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Session{
		ID:        uuid.NewString(),
		SpeakerID: prefs.SpeakerID,
		cfg:       cfg,
		svc:       svc,
		gestures:  make(chan ClientMessage, gestureBuffer),
	}
	if cfg.SpeakerID != "" {
		s.SpeakerID = cfg.SpeakerID
	}
	s.log = logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"room_id":    cfg.RoomID,
		"device_id":  cfg.DeviceID,
	})
	s.ctx, s.cancel = context.WithCancel(context.Background())

	devPrefs := &devicePreferences{svc: svc.Preferences, deviceID: cfg.DeviceID}

	s.remote = NewRemote(w, s.log.WithField("component", "remote"))
	s.recorder = audio.NewRecorder(s.remote, cfg.MinRecordingSeconds, s.log.WithField("component", "recorder"))
	s.queue = playback.NewQueue(s.remote.NewContext, s.remote, playback.Options{
		Gap:         cfg.PlaybackGap,
		Haptics:     s.remote,
		Preferences: devPrefs,
		OnChange:    s.sendPlayback,
		Logger:      s.log.WithField("component", "playback"),
	})
	s.orch = conversation.New(conversation.Config{
		RoomID:             cfg.RoomID,
		SpeakerID:          s.SpeakerID,
		Role:               cfg.Role,
		Language:           prefs.Language,
		AudioEnabled:       prefs.AudioEnabled,
		ConfigErrorDelay:   cfg.ConfigErrorDelay,
		PipelineErrorDelay: cfg.PipelineErrorDelay,
	}, conversation.Deps{
		Recorder:    s.recorder,
		Transcriber: svc.Speech,
		Translator:  svc.Translation,
		Synthesizer: svc.Speech,
		Store:       svc.Conversations,
		Player:      &meteredPlayer{q: s.queue, m: svc.Metrics},
		Preferences: devPrefs,
		Listener:    s.sendEvent,
		Logger:      s.log,
	})
	return s, nil
}

// Start subscribes to the room, loads history, announces presence and sends
// the initial state.
func (s *Session) Start(ctx context.Context) error {
	sub, err := s.svc.Broker.Subscribe(ctx, s.cfg.RoomID)
	if err != nil {
		return utils.E(utils.CodeUnavailable, "Session.Start", "failed to join room", err)
	}
	s.sub = sub

	if err := s.orch.LoadHistory(ctx); err != nil {
		s.log.WithError(err).Warn("history load failed")
		s.sendError(err)
	}
	if err := s.svc.Broker.Join(ctx, s.cfg.RoomID, s.ID); err != nil {
		s.log.WithError(err).Warn("presence join failed")
	}

	st := s.orch.State()
	_ = s.remote.send(ServerMessage{Type: MsgState, State: &st, SpeakerID: s.SpeakerID})

	s.wg.Add(3)
	go s.pumpRoom()
	go s.heartbeat()
	go s.runGestures()

	s.svc.Metrics.SessionOpened()
	s.log.WithField("speaker_id", s.SpeakerID).Info("session started")
	return nil
}

// HandleMessage routes one client message. Acknowledgements resolve their
// pending request immediately; gestures run in order on the gesture worker.
func (s *Session) HandleMessage(msg ClientMessage) {
	switch msg.Type {
	case MsgMicGranted, MsgMicDenied, MsgPlayEnded, MsgPlayBlocked, MsgPlayError:
		if !s.remote.Resolve(msg) {
			s.log.WithFields(logrus.Fields{"type": msg.Type, "request_id": msg.RequestID}).Debug("stale ack ignored")
		}
	case MsgContextState:
		if msg.RequestID == "" || !s.remote.Resolve(msg) {
			s.remote.SetContextState(msg.State)
		}
	case MsgAudioChunk:
		if err := s.remote.PushChunk(msg.Samples); err != nil {
			s.sendError(err)
		}
	case MsgPlayBlockedAudio:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.playBlocked(msg.ID)
		}()
	case MsgUnlock, MsgRecordStart, MsgRecordStop, MsgSetLanguage, MsgClearTranscript:
		select {
		case s.gestures <- msg:
		case <-s.ctx.Done():
		}
	default:
		s.sendError(utils.E(utils.CodeInvalidArgument, "Session.HandleMessage", "unknown message type", nil))
	}
}

func (s *Session) runGestures() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.gestures:
			s.handleGesture(msg)
		}
	}
}

func (s *Session) handleGesture(msg ClientMessage) {
	log := s.log.WithField("gesture", msg.Type)

	switch msg.Type {
	case MsgUnlock:
		if !s.orch.EnableAudio(s.ctx) {
			log.Info("unlock buffer did not play; audio enabled anyway")
		}
	case MsgRecordStart:
		if err := s.orch.StartRecording(s.ctx); err != nil {
			log.WithError(err).Info("recording not started")
			s.svc.Metrics.Utterance(outcome(err))
		}
	case MsgRecordStop:
		rec, err := s.orch.StopRecording()
		if err != nil {
			log.WithError(err).Info("recording discarded")
			s.svc.Metrics.Utterance(outcome(err))
			return
		}
		if rec == nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.process(rec)
		}()
	case MsgSetLanguage:
		if err := s.orch.UpdateLanguage(s.ctx, msg.Code); err != nil {
			s.sendError(err)
		}
	case MsgClearTranscript:
		s.orch.ClearTranscript()
	}
}

// process runs one captured utterance through the pipeline. The utterance
// is archived afterwards when enabled.
func (s *Session) process(rec *audio.Recording) {
	entry, err := s.orch.TriggerUtterance(s.ctx, rec.WAV)
	s.svc.Metrics.Utterance(outcome(err))
	if err != nil {
		return
	}
	if !s.cfg.Archive || s.svc.Utterances == nil {
		return
	}
	if _, err := s.svc.Utterances.Submit(s.ctx, s.cfg.RoomID, s.SpeakerID, entry.SourceLanguage, rec.WAV); err != nil {
		s.log.WithError(err).WithField("entry_id", entry.ID).Warn("utterance archive failed")
	}
}

func (s *Session) playBlocked(id string) {
	err := s.queue.PlayBlockedAudio(s.ctx, id)
	switch {
	case err == nil:
		s.svc.Metrics.Playback("ended")
	case utils.IsCode(err, utils.CodePlaybackBlocked):
		s.svc.Metrics.Playback("blocked")
		s.sendError(err)
	default:
		s.svc.Metrics.Playback("errored")
		s.sendError(err)
	}
}

func (s *Session) pumpRoom() {
	defer s.wg.Done()
	for ev := range s.sub.Events() {
		switch ev.Type {
		case realtime.EventInsert:
			if ev.Entry != nil {
				s.orch.HandleInsert(*ev.Entry)
			}
		case realtime.EventPresence:
			s.orch.HandlePresence(ev.Count)
		}
	}
}

func (s *Session) heartbeat() {
	defer s.wg.Done()
	t := time.NewTicker(s.cfg.Heartbeat)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			if err := s.svc.Broker.Join(s.ctx, s.cfg.RoomID, s.ID); err != nil && s.ctx.Err() == nil {
				s.log.WithError(err).Warn("presence heartbeat failed")
			}
		}
	}
}

// Close tears the session down: pending device requests fail, the room
// subscription and presence are dropped, playback stops and the microphone
// is released.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.remote.Close()

		started := s.sub != nil
		if started {
			_ = s.sub.Close()
			ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
			if err := s.svc.Broker.Leave(ctx, s.cfg.RoomID, s.ID); err != nil {
				s.log.WithError(err).Warn("presence leave failed")
			}
			cancel()
		}

		if _, err := s.recorder.Stop(); err != nil {
			s.log.WithError(err).Debug("recording dropped on close")
		}
		s.orch.Close()
		if err := s.queue.Close(); err != nil {
			s.log.WithError(err).Debug("audio context close failed")
		}
		s.wg.Wait()

		if started {
			s.svc.Metrics.SessionClosed()
		}
		s.log.Info("session closed")
	})
}

func (s *Session) State() conversation.State { return s.orch.State() }

func (s *Session) sendEvent(ev conversation.Event) {
	if err := s.remote.send(ServerMessage{Type: MsgEvent, Event: &ev}); err != nil && s.ctx.Err() == nil {
		s.log.WithError(err).Debug("event not delivered")
	}
}

func (s *Session) sendPlayback(st playback.Status) {
	_ = s.remote.send(ServerMessage{Type: MsgPlaybackStatus, Playback: &st})
}

func (s *Session) sendError(err error) {
	_ = s.remote.send(ServerMessage{Type: MsgError, Code: utils.CodeOf(err), Message: utils.UserMessage(err)})
}

func outcome(err error) string {
	if err == nil {
		return "stored"
	}
	return strings.ToLower(string(utils.CodeOf(err)))
}

// devicePreferences binds the preference service to this session's device.
type devicePreferences struct {
	svc      services.PreferenceService
	deviceID string
}

func (d *devicePreferences) SetLanguage(ctx context.Context, lang *models.LanguageOption) error {
	_, err := d.svc.SetLanguage(ctx, d.deviceID, lang.Code)
	return err
}

func (d *devicePreferences) SetAudioEnabled(ctx context.Context, enabled bool) error {
	return d.svc.SetAudioEnabled(ctx, d.deviceID, enabled)
}

// meteredPlayer counts playback outcomes of queued items.
type meteredPlayer struct {
	q *playback.Queue
	m *metrics.Metrics
}

func (p *meteredPlayer) Enqueue(item playback.Item) {
	onEnd, onErr := item.OnEnd, item.OnError
	item.OnEnd = func() {
		p.m.Playback("ended")
		if onEnd != nil {
			onEnd()
		}
	}
	item.OnError = func(err error) {
		if utils.IsCode(err, utils.CodePlaybackBlocked) {
			p.m.Playback("blocked")
		} else {
			p.m.Playback("errored")
		}
		if onErr != nil {
			onErr(err)
		}
	}
	p.q.Enqueue(item)
}

func (p *meteredPlayer) Unlock(ctx context.Context) bool { return p.q.Unlock(ctx) }

var (
	_ playback.PreferenceStore = (*devicePreferences)(nil)
	_ conversation.Preferences = (*devicePreferences)(nil)
	_ conversation.Player      = (*meteredPlayer)(nil)
	_ conversation.Store       = (services.ConversationService)(nil)
	_ conversation.Transcriber = (services.SpeechService)(nil)
	_ conversation.Synthesizer = (services.SpeechService)(nil)
	_ conversation.Translator  = (services.TranslationService)(nil)
)
