package probe

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kahiteam/procdup/fork"
	"github.com/kahiteam/procdup/internal/config"
)

// runMessage is what the run scenario's closure sends back.
const runMessage = "hello from the duplicate"

func (r *Runner) execute(s config.Scenario) (observation, error) {
	switch s.Kind {
	case config.KindExit:
		return r.exitScenario(s)
	case config.KindPid:
		return r.pidScenario(s)
	case config.KindTryWait:
		return r.tryWaitScenario(s)
	case config.KindKill:
		return r.killScenario(s)
	case config.KindWaitTwice:
		return r.waitTwiceScenario(s)
	case config.KindRun:
		return r.runScenario(s)
	default:
		return observation{}, fmt.Errorf("unknown scenario kind %q", s.Kind)
	}
}

// duplicate is the whole life of the forked process for most scenarios.
// It must not log or park the goroutine: the logger's lock may be held by a
// thread that was not carried over, and no thread is left to wake a sleeper.
func duplicate(s config.Scenario) {
	fork.Sleep(s.Delay)
	fork.Exit(*s.ExitCode)
}

func checkStatus(what string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s returned status %d, want %d", what, got, want)
	}
	return nil
}

func (r *Runner) exitScenario(s config.Scenario) (observation, error) {
	c, err := r.forkTracked()
	if err != nil {
		return observation{}, fmt.Errorf("fork: %w", err)
	}
	if c == nil {
		duplicate(s)
	}
	defer c.release()

	obs := observation{pid: c.Pid()}
	obs.status, err = c.Wait()
	if err != nil {
		return obs, fmt.Errorf("wait: %w", err)
	}
	return obs, checkStatus("wait", obs.status, *s.Expect)
}

func (r *Runner) pidScenario(s config.Scenario) (observation, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return observation{}, fmt.Errorf("pipe: %w", err)
	}
	defer pr.Close()

	c, err := r.forkTracked()
	if err != nil {
		pw.Close()
		return observation{}, fmt.Errorf("fork: %w", err)
	}
	if c == nil {
		_, _ = pw.Write(binary.LittleEndian.AppendUint32(nil, uint32(os.Getpid())))
		duplicate(s)
	}
	defer c.release()
	pw.Close()

	obs := observation{pid: c.Pid()}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(pr, buf); err != nil {
		return obs, fmt.Errorf("read pid from duplicate: %w", err)
	}
	if reported := int(binary.LittleEndian.Uint32(buf)); reported != c.Pid() {
		return obs, fmt.Errorf("duplicate reported pid %d, handle says %d", reported, c.Pid())
	}

	obs.status, err = c.Wait()
	if err != nil {
		return obs, fmt.Errorf("wait: %w", err)
	}
	return obs, checkStatus("wait", obs.status, *s.Expect)
}

func (r *Runner) tryWaitScenario(s config.Scenario) (observation, error) {
	c, err := r.forkTracked()
	if err != nil {
		return observation{}, fmt.Errorf("fork: %w", err)
	}
	if c == nil {
		duplicate(s)
	}
	defer c.release()

	obs := observation{pid: c.Pid()}
	if code, exited, err := c.TryWait(); err != nil {
		return obs, fmt.Errorf("first try_wait: %w", err)
	} else if exited {
		return obs, fmt.Errorf("first try_wait saw exit status %d before delay %s elapsed", code, s.Delay)
	}

	// Poll until the duplicate exits or settle runs out.
	start := time.Now()
	var (
		code   int
		exited bool
	)
	for !exited && time.Since(start) < s.Settle {
		time.Sleep(min(r.PollInterval, s.Settle-time.Since(start)))
		code, exited, err = c.TryWait()
		if err != nil {
			return obs, fmt.Errorf("try_wait: %w", err)
		}
	}
	if !exited {
		return obs, fmt.Errorf("duplicate still running %s after fork", s.Settle)
	}
	if elapsed := time.Since(start); elapsed < s.Delay/2 {
		return obs, fmt.Errorf("duplicate exited after %s, well before its %s delay", elapsed, s.Delay)
	}
	obs.status = code
	if err := checkStatus("try_wait", code, *s.Expect); err != nil {
		return obs, err
	}

	code, err = c.Wait()
	if err != nil {
		return obs, fmt.Errorf("wait: %w", err)
	}
	return obs, checkStatus("wait after try_wait", code, *s.Expect)
}

func (r *Runner) killScenario(s config.Scenario) (observation, error) {
	c, err := r.forkTracked()
	if err != nil {
		return observation{}, fmt.Errorf("fork: %w", err)
	}
	if c == nil {
		duplicate(s)
	}
	defer c.release()

	obs := observation{pid: c.Pid()}
	if err := c.Kill(); err != nil {
		return obs, fmt.Errorf("kill: %w", err)
	}

	code, ok, err := c.waitTimeout(killTimeout)
	if !ok {
		return obs, fmt.Errorf("wait did not return within %s of kill", killTimeout)
	}
	if err != nil {
		return obs, fmt.Errorf("wait: %w", err)
	}
	obs.status = code
	if err := checkStatus("wait after kill", code, *s.Expect); err != nil {
		return obs, err
	}

	if err := c.Kill(); err != nil {
		return obs, fmt.Errorf("kill of an exited duplicate: %w", err)
	}
	return obs, nil
}

func (r *Runner) waitTwiceScenario(s config.Scenario) (observation, error) {
	c, err := r.forkTracked()
	if err != nil {
		return observation{}, fmt.Errorf("fork: %w", err)
	}
	if c == nil {
		duplicate(s)
	}
	defer c.release()

	obs := observation{pid: c.Pid()}
	first, err := c.Wait()
	if err != nil {
		return obs, fmt.Errorf("first wait: %w", err)
	}
	second, err := c.Wait()
	if err != nil {
		return obs, fmt.Errorf("second wait: %w", err)
	}
	obs.status = second
	if first != second {
		return obs, fmt.Errorf("wait returned %d then %d", first, second)
	}
	if err := checkStatus("wait", first, *s.Expect); err != nil {
		return obs, err
	}
	if err := c.Kill(); err != nil {
		return obs, fmt.Errorf("kill after wait: %w", err)
	}
	return obs, nil
}

func (r *Runner) runScenario(s config.Scenario) (observation, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return observation{}, fmt.Errorf("pipe: %w", err)
	}
	defer pr.Close()

	delay := s.Delay
	// Built here so the duplicate does not allocate it.
	var failure error
	if code := *s.ExitCode; code != 0 {
		failure = fmt.Errorf("asked to fail with %d", code)
	}
	msg := []byte(runMessage)
	c, err := r.runTracked(func() error {
		if _, err := pw.Write(msg); err != nil {
			return err
		}
		pw.Close()
		fork.Sleep(delay)
		return failure
	})
	if err != nil {
		pw.Close()
		return observation{}, fmt.Errorf("run: %w", err)
	}
	defer c.release()
	pw.Close()

	obs := observation{pid: c.Pid()}
	got, err := io.ReadAll(pr)
	if err != nil {
		return obs, fmt.Errorf("read from duplicate: %w", err)
	}
	if string(got) != runMessage {
		return obs, fmt.Errorf("duplicate sent %q, want %q", got, runMessage)
	}

	obs.status, err = c.Wait()
	if err != nil {
		return obs, fmt.Errorf("wait: %w", err)
	}
	return obs, checkStatus("wait", obs.status, *s.Expect)
}
