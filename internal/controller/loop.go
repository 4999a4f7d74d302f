package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// FrameSink receives encoded frames
type FrameSink interface {
	Publish(frame []byte)
}

// Run reads frames from source until ctx is done or the camera fails,
// publishing each annotated frame as JPEG to sink. The source is closed on
// every exit path. A camera failure is returned as camera.ErrCameraUnavailable.
func (c *Controller) Run(ctx context.Context, source camera.Source, sink FrameSink) error {
	defer func() {
		if err := source.Close(); err != nil {
			c.log.Warn().Err(err).Msg("failed to close camera")
		}
	}()

	c.log.Info().Msg("frame loop started")
	for {
		if ctx.Err() != nil {
			c.log.Info().Msg("frame loop stopped")
			return nil
		}

		frame, err := source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("frame loop stopped")
				return nil
			}
			if !errors.Is(err, camera.ErrCameraUnavailable) {
				err = fmt.Errorf("%w: %w", camera.ErrCameraUnavailable, err)
			}
			c.log.Error().Err(err).Msg("camera read failed")
			return err
		}

		annotated, _ := c.ProcessFrame(ctx, frame)
		data, err := vision.EncodeJPEG(annotated)
		if err != nil {
			c.log.Warn().Err(err).Msg("failed to encode frame")
			continue
		}
		sink.Publish(data)
	}
}
