package service

import (
	"context"
	"errors"
	"time"

	"github.com/ZaguanLabs/pagetl"
	"github.com/cenkalti/backoff/v4"
)

var errStillDownloading = errors.New("model still downloading")

// create makes a translator, retrying failed attempts according to what a
// fresh availability check reports.
func (s *Service) create(ctx context.Context, pair pagetl.LanguagePair, onProgress pagetl.ProgressFunc) (pagetl.TranslatorInstance, error) {
	monitor := newProgress(onProgress, s.logger)

	var lastErr error
	attempts := 0
	for {
		attempts++
		s.logger.Info("creating translator", "pair", pair.String(), "attempt", attempts)

		h, err := s.translator.Create(ctx, pair, monitor.report)
		if err == nil {
			return h, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempts > s.maxCreateRetries || permanent(err) {
			break
		}
		if err := s.prepareRetry(ctx, pair); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
		s.logger.Warn("retrying translator creation", "pair", pair.String(), "attempt", attempts+1, "error", err)
	}

	return nil, &pagetl.TranslatorCreateError{Pair: pair, Attempts: attempts, Cause: lastErr}
}

// permanent reports a capability error that another attempt cannot fix.
func permanent(err error) bool {
	var providerErr *pagetl.ProviderError
	return errors.As(err, &providerErr) && !pagetl.IsRetryable(err)
}

// prepareRetry waits until another creation attempt makes sense.
func (s *Service) prepareRetry(ctx context.Context, pair pagetl.LanguagePair) error {
	avail, err := s.translator.Availability(ctx, pair)
	if err != nil {
		return err
	}

	switch avail {
	case pagetl.Unavailable:
		return pagetl.ErrUnsupportedLanguagePair
	case pagetl.Downloading:
		return s.waitForDownload(ctx, pair)
	default:
		return sleep(ctx, s.retryDelay)
	}
}

// waitForDownload polls availability until the model leaves the
// downloading state or the download wait runs out.
func (s *Service) waitForDownload(ctx context.Context, pair pagetl.LanguagePair) error {
	polls := uint64(1)
	if s.pollInterval > 0 {
		polls = uint64(s.downloadWait / s.pollInterval)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.pollInterval), polls), ctx)
	return backoff.Retry(func() error {
		avail, err := s.translator.Availability(ctx, pair)
		if err != nil {
			return backoff.Permanent(err)
		}
		switch avail {
		case pagetl.Downloading:
			s.logger.Debug("translator model still downloading", "pair", pair.String())
			return errStillDownloading
		case pagetl.Unavailable:
			return backoff.Permanent(pagetl.ErrUnsupportedLanguagePair)
		}
		return nil
	}, b)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
