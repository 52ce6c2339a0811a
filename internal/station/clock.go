package station

import "time"

// StartClock begins the minute scheduler. One goroutine fires a tick at
// every wall-clock minute boundary and a worker drains them, so a slow
// batch of backups delays later ticks instead of stacking them.
func (s *Station) StartClock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticks != nil {
		return
	}
	s.ticks = make(chan time.Time, 1)
	s.tickStop = make(chan struct{})
	s.runWG.Add(2)
	go s.runTicker(s.ticks, s.tickStop)
	go s.run(s.ticks)
}

// StopClock halts the scheduler and waits for in-flight tick work.
func (s *Station) StopClock() {
	s.mu.Lock()
	if s.ticks == nil {
		s.mu.Unlock()
		return
	}
	stop := s.tickStop
	s.ticks = nil
	s.tickStop = nil
	s.mu.Unlock()

	close(stop)
	s.runWG.Wait()
}

func (s *Station) runTicker(ticks chan<- time.Time, stop <-chan struct{}) {
	defer s.runWG.Done()
	defer close(ticks)
	for {
		now := time.Now()
		next := now.Truncate(time.Minute).Add(time.Minute)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-stop:
			timer.Stop()
			return
		case t := <-timer.C:
			select {
			case ticks <- t:
			default:
				// The previous tick is still being processed; drop this one.
			}
		}
	}
}

func (s *Station) run(ticks <-chan time.Time) {
	defer s.runWG.Done()
	for t := range ticks {
		s.processTick(t)
	}
}

// processTick executes one scheduler minute: reset the daily warning
// quota at midnight, run any backups that have come due, then sweep the
// uptime targets when the minute lands on the sweep interval.
func (s *Station) processTick(now time.Time) {
	t := now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	minute := t.Minute()
	hourMinutes := t.Hour() * minutesPerHour

	if minute == 0 && hourMinutes == 0 {
		s.warningsSent = 0
	}
	if s.BackupEnabled {
		s.runDueBackupsLocked(t)
	}
	if interval := s.Uptime.IntervalMinutes; interval > 0 && (hourMinutes+minute)%interval == 0 {
		s.runUptimeSweepLocked()
	}
}
