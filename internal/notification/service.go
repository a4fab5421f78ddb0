package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nextstep-care/platform/internal/shared/metrics"
)

// EmailProvider delivers email notifications
type EmailProvider interface {
	Send(ctx context.Context, notification *Notification) error
}

// SMSProvider delivers SMS notifications
type SMSProvider interface {
	Send(ctx context.Context, notification *Notification) error
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Workers:       4,
		BufferSize:    1000,
		RetryAttempts: 3,
		RetryDelay:    30 * time.Second,
	}
}

// Service queues notifications and delivers them through a worker pool.
// Enqueueing never blocks the request path; a full buffer is an error
// the caller can surface.
type Service struct {
	emailProvider EmailProvider
	smsProvider   SMSProvider

	mu      sync.RWMutex
	pending map[string]*Notification
	stats   *Stats

	notifCh chan *Notification
	workers int

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	config ServiceConfig
	now    func() time.Time
}

// NewService creates a new notification service
func NewService(emailProvider EmailProvider, smsProvider SMSProvider, config ServiceConfig) *Service {
	return &Service{
		emailProvider: emailProvider,
		smsProvider:   smsProvider,
		pending:       make(map[string]*Notification),
		stats:         &Stats{},
		notifCh:       make(chan *Notification, config.BufferSize),
		workers:       config.Workers,
		stopCh:        make(chan struct{}),
		config:        config,
		now:           time.Now,
	}
}

// Start starts the delivery workers
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("service already started")
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	return nil
}

// Stop drains the workers and waits for them to exit
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("service not started")
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	return nil
}

// Send queues a notification for delivery
func (s *Service) Send(ctx context.Context, notification *Notification) error {
	if notification.ID == "" {
		notification.ID = fmt.Sprintf("ntf-%d", s.now().UnixNano())
	}
	if notification.Priority == "" {
		notification.Priority = PriorityNormal
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now()
	}
	notification.UpdatedAt = s.now()
	notification.Status = StatusPending

	s.mu.Lock()
	s.pending[notification.ID] = notification
	s.mu.Unlock()

	select {
	case s.notifCh <- notification:
		return nil
	default:
		return fmt.Errorf("notification buffer full")
	}
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case notif := <-s.notifCh:
			s.process(ctx, notif)
		}
	}
}

func (s *Service) process(ctx context.Context, notif *Notification) {
	var err error
	switch notif.Type {
	case TypeEmail:
		if s.emailProvider != nil {
			err = s.emailProvider.Send(ctx, notif)
		} else {
			err = fmt.Errorf("email provider not configured")
		}
	case TypeSMS:
		if s.smsProvider != nil {
			err = s.smsProvider.Send(ctx, notif)
		} else {
			err = fmt.Errorf("sms provider not configured")
		}
	default:
		err = fmt.Errorf("unknown notification type: %s", notif.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		notif.ErrorMessage = err.Error()
		notif.RetryCount++
		now := s.now()
		notif.LastRetryAt = &now

		if notif.RetryCount >= s.config.RetryAttempts {
			notif.Status = StatusFailed
			s.updateStats(notif, false)
			metrics.RecordNotification(string(notif.Type), string(StatusFailed))
		} else {
			go func() {
				time.Sleep(s.config.RetryDelay)
				select {
				case s.notifCh <- notif:
				default:
				}
			}()
		}
	} else {
		now := s.now()
		notif.SentAt = &now
		notif.Status = StatusSent
		s.updateStats(notif, true)
		metrics.RecordNotification(string(notif.Type), string(StatusSent))
	}

	notif.UpdatedAt = s.now()
}

func (s *Service) updateStats(notif *Notification, success bool) {
	if s.stats.ByType == nil {
		s.stats.ByType = make(map[Type]int64)
	}
	if s.stats.ByPriority == nil {
		s.stats.ByPriority = make(map[Priority]int64)
	}

	s.stats.ByType[notif.Type]++
	s.stats.ByPriority[notif.Priority]++

	if success {
		s.stats.TotalSent++
	} else {
		s.stats.TotalFailed++
	}
	if total := s.stats.TotalSent + s.stats.TotalFailed; total > 0 {
		s.stats.DeliveryRate = float64(s.stats.TotalSent) / float64(total)
	}
}

// Get returns a queued or processed notification by ID
func (s *Service) Get(id string) (*Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.pending[id]
	return n, ok
}

// GetStats returns delivery statistics since startup
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := *s.stats
	out.ByType = make(map[Type]int64, len(s.stats.ByType))
	for k, v := range s.stats.ByType {
		out.ByType[k] = v
	}
	out.ByPriority = make(map[Priority]int64, len(s.stats.ByPriority))
	for k, v := range s.stats.ByPriority {
		out.ByPriority[k] = v
	}
	return out
}
