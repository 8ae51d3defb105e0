package constellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pubhubs/pubhubs-core/internal/metrics"
)

// RunOutcome is the result reported by a server's discovery/run endpoint.
type RunOutcome string

const (
	UpToDate   RunOutcome = "UpToDate"
	Restarting RunOutcome = "Restarting"
)

// Info is what GET /.ph/discovery/info returns.
type Info struct {
	Name             ServerName     `json:"name"`
	SelfCheckCode    string         `json:"self_check_code"`
	Version          string         `json:"version"`
	PHCURL           string         `json:"phc_url"`
	JWTKey           string         `json:"jwt_key"`
	EncKey           string         `json:"enc_key"`
	MasterEncKeyPart string         `json:"master_enc_key_part,omitempty"`
	Constellation    *Constellation `json:"constellation,omitempty"`
}

// Client is the transport a discovery participant uses to reach another
// server's discovery endpoints. Production code implements this over
// HTTP; tests can implement it directly in memory.
type Client interface {
	Info(ctx context.Context, serverURL string) (Info, error)
	Run(ctx context.Context, serverURL string) (RunOutcome, error)
}

// MismatchError describes why a peer's discovery info diverges from the
// expected constellation.
type MismatchError struct {
	ServerURL string
	Reason    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("discovery: %s diverges from constellation: %s", e.ServerURL, e.Reason)
}

// checkAgainst verifies that info matches the expected constellation and
// self-check code for a given server entry: same phc_url, same name, same self_check_code (if known), same
// constellation.
func checkAgainst(info Info, want ServerParams, wantConstellation Constellation, knownSelfCheckCode string) error {
	if info.PHCURL != wantConstellation.PHCURL {
		return &MismatchError{ServerURL: want.URL, Reason: "phc_url mismatch"}
	}
	if info.Name != want.Name {
		return &MismatchError{ServerURL: want.URL, Reason: "name mismatch"}
	}
	if knownSelfCheckCode != "" && info.SelfCheckCode != knownSelfCheckCode {
		return &MismatchError{ServerURL: want.URL, Reason: "self_check_code mismatch"}
	}
	if info.Constellation == nil || info.Constellation.ID != wantConstellation.ID {
		return &MismatchError{ServerURL: want.URL, Reason: "constellation mismatch"}
	}
	return nil
}

// BackoffPolicy controls retry pacing for Converge.
type BackoffPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultBackoffPolicy matches the exponential-backoff-with-bounded-
// attempts retry helper described for inter-server calls.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Initial:     200 * time.Millisecond,
		Max:         10 * time.Second,
		Multiplier:  2,
		MaxAttempts: 8,
	}
}

func (b BackoffPolicy) delay(attempt int) time.Duration {
	d := b.Initial
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * b.Multiplier)
		if d > b.Max {
			return b.Max
		}
	}
	return d
}

// Converge runs the client-side discovery algorithm: poll PHC
// until it publishes a constellation, then check every other server in
// that constellation against it, invoking discovery/run on any that
// diverge, until all agree or attempts are exhausted.
func Converge(ctx context.Context, c Client, phcURL string, policy BackoffPolicy) (Constellation, error) {
	convergeStart := time.Now()
	var want Constellation

	for attempt := 0; ; attempt++ {
		info, err := c.Info(ctx, phcURL)
		if err == nil && info.Constellation != nil {
			want = *info.Constellation
			break
		}
		if attempt >= policy.MaxAttempts {
			return Constellation{}, fmt.Errorf("constellation: PHC at %s never published a constellation", phcURL)
		}
		if err := sleepOrDone(ctx, policy.delay(attempt)); err != nil {
			return Constellation{}, err
		}
	}

	for attempt := 0; ; attempt++ {
		allAgree := true

		for _, server := range want.Servers {
			if server.URL == phcURL {
				continue
			}
			info, err := c.Info(ctx, server.URL)
			if err == nil {
				err = checkAgainst(info, server, want, "")
				if err == nil {
					continue
				}
			}
			allAgree = false
			var mismatch *MismatchError
			if errors.As(err, &mismatch) {
				metrics.ConstellationMismatches.WithLabelValues(string(server.Name), mismatch.Reason).Inc()
			}
			if _, runErr := c.Run(ctx, server.URL); runErr != nil {
				return Constellation{}, fmt.Errorf("constellation: triggering discovery/run on %s: %w", server.URL, runErr)
			}
		}

		if allAgree {
			metrics.ConvergenceDuration.Observe(time.Since(convergeStart).Seconds())
			return want, nil
		}
		if attempt >= policy.MaxAttempts {
			return Constellation{}, fmt.Errorf("constellation: servers did not converge on %s within %d attempts", want.ID, policy.MaxAttempts)
		}
		if err := sleepOrDone(ctx, policy.delay(attempt)); err != nil {
			return Constellation{}, err
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
