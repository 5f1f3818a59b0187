package workers

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Kazorio/translation-app/internal/metrics"
	mongorepo "github.com/Kazorio/translation-app/internal/repositories/mongo"
	"github.com/Kazorio/translation-app/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultArchiveStream = "utterance:archive"
	DefaultArchiveGroup  = "archive-workers"
)

// ArchiveWorkerPool moves recorded utterances from Mongo to object storage.
type ArchiveWorkerPool struct {
	Redis      redis.UniversalClient
	Utterances mongorepo.UtteranceRepository
	Uploader   storage.Uploader
	Metrics    *metrics.Metrics
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *ArchiveWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Utterances == nil || p.Uploader == nil {
		return errors.New("ArchiveWorkerPool missing dependency: Redis/Utterances/Uploader must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *ArchiveWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = DefaultArchiveStream
	}
	if p.Group == "" {
		p.Group = DefaultArchiveGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
}

func (p *ArchiveWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("archive stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handle(ctx, msg.ID, msg.Values)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

type archiveJob struct {
	UtteranceID string
	RoomID      string
}

func parseArchiveJob(values map[string]any) (archiveJob, bool) {
	get := func(k string) string {
		v, ok := values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}
	j := archiveJob{UtteranceID: get("utterance_id"), RoomID: get("room_id")}
	return j, j.UtteranceID != "" && j.RoomID != ""
}

// handle archives one recording. Failures are recorded on the document; the
// stream entry is acked either way.
func (p *ArchiveWorkerPool) handle(ctx context.Context, msgID string, values map[string]any) {
	job, ok := parseArchiveJob(values)
	if !ok {
		p.Metrics.Archive("invalid")
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":     msgID,
		"utterance_id": job.UtteranceID,
		"room_id":      job.RoomID,
	})

	u, err := p.Utterances.GetByUtteranceID(ctx, job.UtteranceID)
	if err != nil {
		log.WithError(err).Warn("utterance lookup failed")
		p.Metrics.Archive("missing")
		return
	}
	if len(u.AudioWAV) == 0 {
		// already archived by another consumer or expired
		p.Metrics.Archive("skipped")
		return
	}

	path, err := p.Uploader.Upload(ctx, storage.UtteranceObject(job.RoomID, job.UtteranceID), storage.ContentTypeWAV, bytes.NewReader(u.AudioWAV))
	if err != nil {
		log.WithError(err).Error("archive upload failed")
		_ = p.Utterances.MarkFailed(ctx, job.UtteranceID)
		p.Metrics.Archive("failed")
		return
	}

	if err := p.Utterances.MarkArchived(ctx, job.UtteranceID, path); err != nil {
		log.WithError(err).Error("mark archived failed")
		p.Metrics.Archive("failed")
		return
	}
	log.WithField("object_path", path).Info("utterance archived")
	p.Metrics.Archive("archived")
}
