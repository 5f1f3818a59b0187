package conversation

import (
	"sync"

	"github.com/Kazorio/translation-app/internal/languages"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/playback"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
)

var errEmptyTranslation = utils.E(utils.CodeTranslation, "Orchestrator.retranslate", "translation came back empty", nil)

// playJob turns one remote entry into queued audio.
type playJob struct {
	entry       models.ConversationEntry
	lang        models.LanguageOption
	text        string
	retranslate bool
}

type jobQueue struct {
	mu     sync.Mutex
	items  []playJob
	wake   chan struct{}
	closed bool
}

func newJobQueue() *jobQueue {
	return &jobQueue{wake: make(chan struct{}, 1)}
}

func (q *jobQueue) push(j playJob) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, j)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop blocks until a job is available; ok is false once closed.
func (q *jobQueue) pop() (playJob, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return playJob{}, false
		}
		if len(q.items) > 0 {
			j := q.items[0]
			q.items[0] = playJob{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return j, true
		}
		q.mu.Unlock()
		<-q.wake
	}
}

func (q *jobQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) playbackWorker() {
	defer o.wg.Done()
	for {
		job, ok := o.jobs.pop()
		if !ok {
			return
		}
		o.runJob(job)
	}
}

func (o *Orchestrator) runJob(job playJob) {
	log := o.log.WithFields(logrus.Fields{"entry_id": job.entry.ID, "language": job.lang.Code})

	text := job.text
	if job.retranslate {
		translated, err := o.deps.Translator.Translate(o.ctx, job.entry.OriginalText, languages.Resolve(job.entry.SourceLanguage), job.lang)
		if err == nil && translated == "" {
			err = errEmptyTranslation
		}
		id := job.entry.ID
		// the entry is updated in place before any of its audio is queued
		if cerr := o.call(func() error {
			delete(o.retranslating, id)
			if err == nil {
				o.applyRetranslation(id, translated, job.lang.Code)
			}
			o.emit(Event{Type: EventRetranslating, Retranslating: o.retranslatingIDs()})
			return nil
		}); cerr != nil {
			return
		}
		if err != nil {
			log.WithError(err).Warn("retranslation failed; entry left as received")
			return
		}
		text = translated
	}

	if text == "" || o.deps.Synthesizer == nil || o.deps.Player == nil {
		return
	}

	o.deps.Player.Enqueue(playback.Item{
		ID:       notificationPrefix + job.entry.ID,
		Payload:  notificationTone,
		MimeType: "audio/wav",
	})

	payload, mime, err := o.deps.Synthesizer.Synthesize(o.ctx, text, job.lang.Code)
	if err != nil {
		log.WithError(err).Warn("speech synthesis failed")
		return
	}
	o.deps.Player.Enqueue(playback.Item{
		ID:       job.entry.ID,
		Payload:  payload,
		MimeType: mime,
		OnError: func(err error) {
			log.WithError(err).Debug("entry playback did not complete")
		},
	})
}

// applyRetranslation is the one in-place mutation an entry allows.
func (o *Orchestrator) applyRetranslation(id, translated, target string) {
	i, ok := o.index[id]
	if !ok {
		return
	}
	o.entries[i].TranslatedText = translated
	o.entries[i].TargetLanguage = target
	cp := o.entries[i]
	o.emit(Event{Type: EventEntryUpdated, Entry: &cp})
}
