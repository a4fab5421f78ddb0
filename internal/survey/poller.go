package survey

import (
	"context"
	"log"
	"sync"
	"time"
)

// Poller runs ProcessResponses on an interval so completed forms reach
// client records without anyone clicking a button.
type Poller struct {
	service  *Service
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPoller(service *Service, interval time.Duration) *Poller {
	return &Poller{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the polling loop. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		log.Printf("survey: response poller started (interval %s)", p.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				processed, total, err := p.service.ProcessResponses(ctx)
				if err != nil {
					log.Printf("survey: poll failed: %v", err)
					continue
				}
				if processed > 0 {
					log.Printf("survey: processed %d of %d new responses", processed, total)
				}
			}
		}
	}()
}

// Stop halts the loop and waits for it to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}
