// Package notify dispatches owner notifications for recorded views on a
// background worker, decoupled from the image-serving request path.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"mailbeacon/internal/mailer"
	"mailbeacon/internal/models"
	"mailbeacon/pkg/bus"
)

const viewsSubject = "mailbeacon.views.recorded"

var (
	notificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailbeacon_notifications_sent_total",
		Help: "Owner notification emails delivered.",
	})
	notificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailbeacon_notifications_failed_total",
		Help: "Owner notification emails that could not be delivered.",
	})
	notificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailbeacon_notifications_dropped_total",
		Help: "View jobs dropped because the dispatch queue was full.",
	})
)

// Job describes one recorded view handed to the dispatcher.
type Job struct {
	PixelID  uuid.UUID
	ViewerIP string
	ViewedAt time.Time

	// Notify is set when the pixel owner asked for an email per view.
	Notify bool
}

// Dispatcher owns a bounded job queue and a single worker goroutine.
// Enqueue never blocks the caller; delivery failures are logged and
// swallowed so a flaky mail provider cannot break pixel tracking.
type Dispatcher struct {
	orm  *gorm.DB
	mail mailer.Sender
	bus  *bus.Bus

	jobs    chan Job
	wg      sync.WaitGroup
	handler func(context.Context, Job)
}

// New builds a dispatcher. events may be nil when no broker is configured.
func New(orm *gorm.DB, mail mailer.Sender, events *bus.Bus) *Dispatcher {
	d := &Dispatcher{
		orm:  orm,
		mail: mail,
		bus:  events,
		jobs: make(chan Job, 128),
	}
	d.handler = d.handle
	return d
}

// Start runs the worker until the queue is closed and drained. Jobs run
// on a dispatcher-owned context rather than the server's signal context,
// so queued notifications still go out during shutdown; sendOwnerMail
// bounds each job with its own timeout.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for job := range d.jobs {
			d.handler(context.Background(), job)
		}
	}()
}

// Close stops accepting jobs and waits for the queue to drain.
func (d *Dispatcher) Close() {
	close(d.jobs)
	d.wg.Wait()
}

// Enqueue hands a job to the worker without blocking. A full queue drops
// the job.
func (d *Dispatcher) Enqueue(job Job) bool {
	select {
	case d.jobs <- job:
		return true
	default:
		notificationsDropped.Inc()
		log.Warn().Str("pixel_id", job.PixelID.String()).Msg("notification queue full, dropping job")
		return false
	}
}

func (d *Dispatcher) handle(ctx context.Context, job Job) {
	if d.bus != nil {
		event := map[string]any{
			"pixel_id":  job.PixelID,
			"viewed_at": job.ViewedAt,
		}
		if err := d.bus.Publish(ctx, viewsSubject, event); err != nil {
			log.Warn().Err(err).Msg("publish view event")
		}
	}

	if !job.Notify {
		return
	}

	if err := d.sendOwnerMail(ctx, job); err != nil {
		notificationsFailed.Inc()
		log.Error().Err(err).Str("pixel_id", job.PixelID.String()).Msg("send view notification")
		return
	}
	notificationsSent.Inc()
}

func (d *Dispatcher) sendOwnerMail(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pixel models.Pixel
	if err := d.orm.WithContext(ctx).Preload("User").First(&pixel, "id = ?", job.PixelID).Error; err != nil {
		return err
	}
	if !pixel.Notifications {
		return nil
	}

	subject := fmt.Sprintf("Email Tracking Notification: Your email %q was viewed", pixel.EmailSubject)
	body := fmt.Sprintf(`<div>
  <h2>Email Tracking Notification</h2>
  <p>Your email to %s was viewed.</p>
  <p><strong>Subject:</strong> %s</p>
  <p><strong>Viewed at:</strong> %s</p>
  <hr>
  <p style="color: #666; font-size: 12px;">
    You received this notification because you enabled email notifications for this tracked email.
  </p>
</div>`, pixel.RecipientEmail, pixel.EmailSubject, job.ViewedAt.Format(time.RFC1123))

	return d.mail.Send(ctx, pixel.User.Email, subject, body)
}
