// Package conversation sequences one participant's session in a room:
// capture, transcription, translation, persistence and playback of the
// entries other participants send.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Kazorio/translation-app/internal/audio"
	"github.com/Kazorio/translation-app/internal/languages"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/playback"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	DefaultConfigErrorDelay   = 2 * time.Second
	DefaultPipelineErrorDelay = 1200 * time.Millisecond

	// DefaultTargetScan is how many recent entries are searched for the
	// other participant's language.
	DefaultTargetScan = 5
	// DefaultMaxTracked caps the owned and processed id sets.
	DefaultMaxTracked = 1000

	notificationPrefix = "notification-"
)

var errClosed = utils.E(utils.CodeUnavailable, "Orchestrator", "session closed", nil)

// notificationTone plays ahead of every remote message.
var notificationTone = audio.ToneWAV(44100, 600, 0.15, 0.3)

type Config struct {
	RoomID       string
	SpeakerID    string
	Role         models.SpeakerRole
	Language     *models.LanguageOption
	AudioEnabled bool

	ConfigErrorDelay   time.Duration
	PipelineErrorDelay time.Duration
	TargetScan         int
	MaxTracked         int
}

type Deps struct {
	Recorder    Recorder
	Transcriber Transcriber
	Translator  Translator
	Synthesizer Synthesizer
	Store       Store
	Player      Player
	Preferences Preferences
	Listener    Listener
	Logger      *logrus.Entry
}

// Orchestrator owns the conversation state of one session. Every state
// mutation runs on a single loop goroutine; remote playback jobs run on a
// second goroutine, strictly in arrival order.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func()
	jobs   *jobQueue
	wg     sync.WaitGroup

	// owned by the loop goroutine
	entries       []models.ConversationEntry
	index         map[string]int
	mine          *idSet
	processed     *idSet
	retranslating map[string]struct{}
	status        models.ConversationStatus
	errMsg        string
	errGen        int
	userCount     int
	language      *models.LanguageOption
	audioEnabled  bool
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.ConfigErrorDelay <= 0 {
		cfg.ConfigErrorDelay = DefaultConfigErrorDelay
	}
	if cfg.PipelineErrorDelay <= 0 {
		cfg.PipelineErrorDelay = DefaultPipelineErrorDelay
	}
	if cfg.TargetScan <= 0 {
		cfg.TargetScan = DefaultTargetScan
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = DefaultMaxTracked
	}
	if cfg.Role == "" {
		cfg.Role = models.SpeakerSelf
	}
	log := deps.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:  cfg,
		deps: deps,
		log: log.WithFields(logrus.Fields{
			"component":  "conversation",
			"room_id":    cfg.RoomID,
			"speaker_id": cfg.SpeakerID,
		}),
		ctx:           ctx,
		cancel:        cancel,
		tasks:         make(chan func(), 64),
		jobs:          newJobQueue(),
		index:         map[string]int{},
		mine:          newIDSet(cfg.MaxTracked),
		processed:     newIDSet(cfg.MaxTracked),
		retranslating: map[string]struct{}{},
		status:        models.StatusIdle,
		userCount:     -1,
		language:      cfg.Language,
		audioEnabled:  cfg.AudioEnabled,
	}

	o.wg.Add(2)
	go o.loop()
	go o.playbackWorker()
	return o
}

func (o *Orchestrator) loop() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case fn := <-o.tasks:
			fn()
		}
	}
}

// submit queues fn on the loop without waiting for it.
func (o *Orchestrator) submit(fn func()) bool {
	select {
	case <-o.ctx.Done():
		return false
	case o.tasks <- fn:
		return true
	}
}

// call runs fn on the loop and waits for its result.
func (o *Orchestrator) call(fn func() error) error {
	res := make(chan error, 1)
	if !o.submit(func() { res <- fn() }) {
		return errClosed
	}
	select {
	case err := <-res:
		return err
	case <-o.ctx.Done():
		return errClosed
	}
}

// Close stops the loop and the playback worker. Calls in flight return a
// CodeUnavailable error.
func (o *Orchestrator) Close() {
	o.cancel()
	o.jobs.close()
	o.wg.Wait()
}

func (o *Orchestrator) emit(ev Event) {
	if o.deps.Listener != nil {
		o.deps.Listener(ev)
	}
}

func (o *Orchestrator) setStatus(s models.ConversationStatus) {
	if o.status == s && o.errMsg == "" {
		return
	}
	o.status = s
	o.errMsg = ""
	o.errGen++
	o.emit(Event{Type: EventStatus, Status: s})
}

// fail moves to the error state and schedules the revert to idle.
func (o *Orchestrator) fail(err error, delay time.Duration) {
	o.status = models.StatusError
	o.errMsg = surfaceMessage(err)
	o.errGen++
	gen := o.errGen
	o.emit(Event{
		Type:      EventStatus,
		Status:    models.StatusError,
		ErrorCode: utils.CodeOf(err),
		Error:     o.errMsg,
	})

	time.AfterFunc(delay, func() {
		o.submit(func() {
			if o.errGen == gen && o.status == models.StatusError {
				o.setStatus(models.StatusIdle)
			}
		})
	})
}

// surfaceMessage is the text shown for a failed stage. Stage failures carry
// the collaborator's message unchanged.
func surfaceMessage(err error) string {
	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}

func (o *Orchestrator) failAsync(err error, delay time.Duration) {
	o.submit(func() { o.fail(err, delay) })
}

func (o *Orchestrator) errorDelay(err error) time.Duration {
	if utils.IsCode(err, utils.CodeConfiguration) {
		return o.cfg.ConfigErrorDelay
	}
	return o.cfg.PipelineErrorDelay
}

// StartRecording opens the microphone and moves to recording.
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	if o.deps.Recorder == nil {
		return utils.E(utils.CodeConfiguration, "Orchestrator.StartRecording", "recording is not available", nil)
	}
	if err := o.deps.Recorder.Start(ctx); err != nil {
		o.failAsync(err, o.cfg.PipelineErrorDelay)
		return err
	}
	o.submit(func() { o.setStatus(models.StatusRecording) })
	return nil
}

// StopRecording releases the microphone and returns the captured utterance,
// or nil with the too-short error surfaced when it was below the minimum.
func (o *Orchestrator) StopRecording() (*audio.Recording, error) {
	if o.deps.Recorder == nil {
		return nil, nil
	}
	rec, err := o.deps.Recorder.Stop()
	if err != nil {
		o.failAsync(err, o.cfg.PipelineErrorDelay)
		return nil, err
	}
	return rec, nil
}

// TriggerUtterance runs transcribe, translate and persist for one captured
// utterance. The stored entry is marked mine before any realtime echo of it
// is handled, so the author never hears it played back.
func (o *Orchestrator) TriggerUtterance(ctx context.Context, wav []byte) (*models.ConversationEntry, error) {
	const op = "Orchestrator.TriggerUtterance"

	var lang, target models.LanguageOption
	err := o.call(func() error {
		if !o.language.Valid() {
			return utils.E(utils.CodeConfiguration, op, "please select your language first", nil)
		}
		lang = *o.language
		target = o.detectTarget(lang)
		o.setStatus(models.StatusProcessing)
		return nil
	})
	if err != nil {
		if !errors.Is(err, errClosed) {
			o.failAsync(err, o.errorDelay(err))
		}
		return nil, err
	}

	log := o.log.WithFields(logrus.Fields{"source": lang.Code, "target": target.Code})
	started := time.Now()

	text, confidence, err := o.deps.Transcriber.Transcribe(ctx, wav, lang)
	if err == nil && text == "" {
		err = utils.E(utils.CodeTranscription, op, "no speech detected", nil)
	}
	if err != nil {
		log.WithError(err).Warn("transcription failed")
		o.failAsync(asStageError(err, utils.CodeTranscription, op), o.cfg.PipelineErrorDelay)
		return nil, err
	}

	translated, err := o.deps.Translator.Translate(ctx, text, lang, target)
	if err == nil && translated == "" {
		err = utils.E(utils.CodeTranslation, op, "translation came back empty", nil)
	}
	if err != nil {
		log.WithError(err).Warn("translation failed")
		o.failAsync(asStageError(err, utils.CodeTranslation, op), o.cfg.PipelineErrorDelay)
		return nil, err
	}

	entry := &models.ConversationEntry{
		RoomID:         o.cfg.RoomID,
		Speaker:        o.cfg.Role,
		SpeakerID:      o.cfg.SpeakerID,
		OriginalText:   text,
		TranslatedText: translated,
		SourceLanguage: lang.Code,
		TargetLanguage: target.Code,
		Metadata:       metadata(wav, confidence),
	}

	var stored models.ConversationEntry
	err = o.call(func() error {
		s, err := o.deps.Store.Append(ctx, entry)
		if err != nil {
			return asStageError(err, utils.CodePersistence, op)
		}
		o.mine.Add(s.ID)
		o.processed.Add(s.ID)
		s.IsMine = true
		o.addEntry(*s)
		o.setStatus(models.StatusIdle)
		stored = *s
		return nil
	})
	if err != nil {
		if !errors.Is(err, errClosed) {
			log.WithError(err).Warn("persist failed")
			o.failAsync(err, o.cfg.PipelineErrorDelay)
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"entry_id":   stored.ID,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Info("utterance stored")
	return &stored, nil
}

func asStageError(err error, code utils.Code, op string) error {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return err
	}
	return utils.E(code, op, err.Error(), err)
}

func metadata(wav []byte, confidence float64) datatypes.JSON {
	md := models.EntryMetadata{Confidence: confidence}
	if info, err := audio.ReadWAVInfo(wav); err == nil {
		md.CaptureMS = int64(info.Duration * 1000)
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// detectTarget picks the language of the other participant from the most
// recent entries. Best-effort: in rooms with more than two languages it
// returns whichever differing language spoke last.
func (o *Orchestrator) detectTarget(lang models.LanguageOption) models.LanguageOption {
	scanned := 0
	for i := len(o.entries) - 1; i >= 0 && scanned < o.cfg.TargetScan; i-- {
		scanned++
		if src := o.entries[i].SourceLanguage; src != "" && src != lang.Code {
			return languages.Resolve(src)
		}
	}
	return lang
}

func (o *Orchestrator) addEntry(e models.ConversationEntry) bool {
	if _, ok := o.index[e.ID]; ok {
		return false
	}
	o.index[e.ID] = len(o.entries)
	o.entries = append(o.entries, e)
	cp := e
	o.emit(Event{Type: EventEntryAdded, Entry: &cp})
	return true
}

// ownedHistory reports whether a stored row was spoken by this session or
// an earlier one with the same speaker id.
func (o *Orchestrator) ownedHistory(e *models.ConversationEntry) bool {
	if o.mine.Has(e.ID) {
		return true
	}
	return o.cfg.SpeakerID != "" && e.SpeakerID == o.cfg.SpeakerID
}

// HandleInsert ingests a realtime insert. Inserts are processed in the order
// HandleInsert is called.
func (o *Orchestrator) HandleInsert(e models.ConversationEntry) {
	o.submit(func() { o.ingest(e) })
}

func (o *Orchestrator) ingest(e models.ConversationEntry) {
	log := o.log.WithField("entry_id", e.ID)
	if e.ID == "" {
		log.Warn("insert without id dropped")
		return
	}
	if _, known := o.index[e.ID]; known {
		log.Debug("duplicate insert dropped")
		return
	}

	// Only ids this session stored count; another tab sharing the speaker
	// id still hears the entry.
	e.IsMine = o.mine.Has(e.ID)
	o.addEntry(e)

	if e.IsMine || o.processed.Has(e.ID) {
		return
	}
	if !o.language.Valid() || !o.audioEnabled {
		return
	}
	o.processed.Add(e.ID)

	lang := *o.language
	job := playJob{entry: e, lang: lang}
	switch {
	case e.TargetLanguage == lang.Code:
		job.text = e.TranslatedText
	case e.SourceLanguage == lang.Code:
		job.text = e.OriginalText
	default:
		job.retranslate = true
		o.retranslating[e.ID] = struct{}{}
		o.emit(Event{Type: EventRetranslating, Retranslating: o.retranslatingIDs()})
	}
	o.jobs.push(job)
}

// HandlePresence records the room's participant count. Only changes reach
// the listener.
func (o *Orchestrator) HandlePresence(count int) {
	o.submit(func() {
		if count == o.userCount {
			return
		}
		o.userCount = count
		o.emit(Event{Type: EventUserCount, UserCount: count})
	})
}

// LoadHistory seeds the transcript from storage. History entries are never
// auto-played.
func (o *Orchestrator) LoadHistory(ctx context.Context) error {
	const op = "Orchestrator.LoadHistory"

	rows, err := o.deps.Store.History(ctx, o.cfg.RoomID)
	if err != nil {
		return asStageError(err, utils.CodePersistence, op)
	}
	return o.call(func() error {
		for _, e := range rows {
			if _, known := o.index[e.ID]; known {
				continue
			}
			e.IsMine = o.ownedHistory(&e)
			if e.IsMine {
				o.mine.Add(e.ID)
			}
			o.processed.Add(e.ID)
			o.index[e.ID] = len(o.entries)
			o.entries = append(o.entries, e)
		}
		o.emit(Event{Type: EventHistory, Entries: o.entriesCopy()})
		return nil
	})
}

// ClearTranscript drops the local entries. Stored rows are untouched, and
// ids already seen stay processed so redeliveries never replay.
func (o *Orchestrator) ClearTranscript() {
	o.submit(func() {
		o.entries = nil
		o.index = map[string]int{}
		o.emit(Event{Type: EventTranscriptCleared})
	})
}

func (o *Orchestrator) UpdateLanguage(ctx context.Context, code string) error {
	lang, err := languages.Find(code)
	if err != nil {
		return err
	}
	if err := o.call(func() error {
		o.language = &lang
		o.emit(Event{Type: EventLanguage, Language: &lang})
		return nil
	}); err != nil {
		return err
	}
	if o.deps.Preferences != nil {
		if err := o.deps.Preferences.SetLanguage(ctx, &lang); err != nil {
			o.log.WithError(err).Warn("failed to persist language")
		}
	}
	return nil
}

// EnableAudio runs the gesture-gated unlock and turns auto-play on even if
// the unlock did not succeed. It reports whether the unlock succeeded.
func (o *Orchestrator) EnableAudio(ctx context.Context) bool {
	ok := true
	if o.deps.Player != nil {
		ok = o.deps.Player.Unlock(ctx)
	}
	o.submit(func() {
		if o.audioEnabled {
			return
		}
		o.audioEnabled = true
		o.emit(Event{Type: EventAudioEnabled, AudioEnabled: true})
	})
	return ok
}

func (o *Orchestrator) State() State {
	var s State
	_ = o.call(func() error {
		s = State{
			Status:        o.status,
			Error:         o.errMsg,
			Entries:       o.entriesCopy(),
			Retranslating: o.retranslatingIDs(),
			UserCount:     o.userCount,
			AudioEnabled:  o.audioEnabled,
		}
		if o.language != nil {
			l := *o.language
			s.Language = &l
		}
		if s.UserCount < 0 {
			s.UserCount = 0
		}
		return nil
	})
	return s
}

func (o *Orchestrator) entriesCopy() []models.ConversationEntry {
	return append([]models.ConversationEntry{}, o.entries...)
}

func (o *Orchestrator) retranslatingIDs() []string {
	ids := make([]string, 0, len(o.retranslating))
	for id := range o.retranslating {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ Player = (*playback.Queue)(nil)
