package probe

import (
	"log/slog"
	"time"

	"github.com/kahiteam/procdup/fork"
	"github.com/kahiteam/procdup/internal/metrics"
)

// tracked wraps a fork.Child and counts every call in the collector.
type tracked struct {
	*fork.Child
	metrics *metrics.Collector
	logger  *slog.Logger

	// abandoned is set when a Wait is left running in the background.
	abandoned bool
}

func (r *Runner) forkTracked() (*tracked, error) {
	c, err := fork.Fork()
	if c == nil && err == nil {
		return nil, nil
	}
	r.Metrics.ObserveFork(err)
	if err != nil {
		return nil, err
	}
	return r.track(c), nil
}

func (r *Runner) runTracked(fn func() error) (*tracked, error) {
	c, err := fork.Run(fn)
	r.Metrics.ObserveFork(err)
	if err != nil {
		return nil, err
	}
	return r.track(c), nil
}

func (r *Runner) track(c *fork.Child) *tracked {
	return &tracked{Child: c, metrics: r.Metrics, logger: r.Logger.With("pid", c.Pid())}
}

func (t *tracked) Wait() (int, error) {
	code, err := t.Child.Wait()
	t.metrics.ObserveWait(true, err)
	return code, err
}

func (t *tracked) TryWait() (int, bool, error) {
	code, exited, err := t.Child.TryWait()
	t.metrics.ObserveWait(false, err)
	return code, exited, err
}

func (t *tracked) Kill() error {
	err := t.Child.Kill()
	t.metrics.ObserveKill(err)
	return err
}

// waitTimeout waits for the duplicate in the background and gives up after
// d. The background Wait keeps running if it times out.
func (t *tracked) waitTimeout(d time.Duration) (code int, ok bool, err error) {
	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := t.Wait()
		done <- result{code, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.code, true, res.err
	case <-timer.C:
		t.abandoned = true
		return 0, false, nil
	}
}

// release makes sure the duplicate is gone and its descriptor closed. It is
// a no-op kill once the status is known.
func (t *tracked) release() {
	if t.abandoned {
		t.logger.Warn("duplicate did not exit in time, leaving it behind")
		return
	}
	if _, exited, err := t.Child.TryWait(); err == nil && !exited {
		t.logger.Warn("duplicate still running, killing it")
		if err := t.Kill(); err != nil {
			t.logger.Error("cannot kill duplicate", "err", err)
		} else if _, err := t.Child.Wait(); err != nil {
			t.logger.Error("cannot reap duplicate", "err", err)
		}
	}
	if err := t.Close(); err != nil {
		t.logger.Warn("cannot close process descriptor", "err", err)
	}
}
