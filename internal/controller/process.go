package controller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/kozaktomas/face-attendance/internal/annotate"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

const unknownName = "Unknown"

// ProcessFrame handles one camera frame under the mode active when it starts
// and returns the annotated frame. Commands issued meanwhile apply from the
// next frame on.
func (c *Controller) ProcessFrame(ctx context.Context, frame image.Image) (*image.RGBA, FrameReport) {
	start := time.Now()
	mode, gen := c.snapshot()
	canvas := annotate.NewCanvas(frame)
	report := FrameReport{Mode: ModeName(mode)}

	switch m := mode.(type) {
	case Idle:
		canvas.Banner(0, "System Ready", annotate.White)
	case Registering:
		c.register(ctx, canvas, frame, m, gen, &report)
	case Recognizing:
		c.recognize(ctx, canvas, frame, &report)
	}

	c.metrics.FrameProcessed(report.Mode, time.Since(start))
	return canvas.Image(), report
}

// detect returns the faces of frame. A detector failure yields no faces.
func (c *Controller) detect(ctx context.Context, frame image.Image) []image.Rectangle {
	faces, err := c.vision.DetectFaces(ctx, frame)
	if err != nil {
		c.log.Warn().Err(err).Msg("face detection failed")
		return nil
	}
	c.metrics.FacesDetected(len(faces))
	return faces
}

func (c *Controller) register(ctx context.Context, canvas *annotate.Canvas, frame image.Image, m Registering, gen uint64, report *FrameReport) {
	session := m.Session
	for _, box := range c.detect(ctx, frame) {
		if session.Complete() {
			break
		}
		canvas.Box(box, annotate.Blue)
		if err := session.Add(vision.Crop(frame, box, vision.CropMargin)); err != nil {
			c.log.Error().Err(err).Int64("id", m.Identity.ID).Msg("failed to save sample")
			report.Faces = append(report.Faces, FaceResult{Box: box, Outcome: DetectionError, IdentityID: m.Identity.ID, Err: err})
			continue
		}
		report.Faces = append(report.Faces, FaceResult{Box: box, Outcome: Captured, IdentityID: m.Identity.ID, Name: m.Identity.Name})
	}

	report.Captured = session.Count()
	canvas.Banner(0, fmt.Sprintf("Capturing: %d/%d", session.Count(), session.Max()), annotate.Green)

	if !session.Complete() {
		return
	}

	err := c.train(ctx)
	report.Trained = err == nil
	report.TrainErr = err
	if !c.finishRegistration(gen) {
		c.log.Info().Int64("id", m.Identity.ID).Msg("mode changed during training, staying in new mode")
	}

	if err != nil {
		canvas.Banner(1, "Training Failed", annotate.Red)
		return
	}
	canvas.Banner(1, "Training Complete!", annotate.Green)
}

// train rebuilds the model from every stored sample of every identity
func (c *Controller) train(ctx context.Context) error {
	samples, err := c.samples.LoadAll()
	if err != nil {
		c.metrics.Training("failed")
		c.log.Error().Err(err).Msg("failed to load samples")
		return fmt.Errorf("%w: %w", vision.ErrTrainingFailed, err)
	}

	if err := c.vision.Train(ctx, samples); err != nil {
		c.metrics.Training("failed")
		c.log.Error().Err(err).Int("samples", len(samples)).Msg("training failed")
		return err
	}

	c.metrics.Training("success")
	c.log.Info().Int("samples", len(samples)).Msg("training complete")
	return nil
}

func (c *Controller) recognize(ctx context.Context, canvas *annotate.Canvas, frame image.Image, report *FrameReport) {
	for _, box := range c.detect(ctx, frame) {
		res := c.recognizeFace(ctx, frame, box)
		report.Faces = append(report.Faces, res)
		c.metrics.Recognition(res.Outcome.String())

		col := annotate.Red
		confidence := ""
		switch res.Outcome {
		case Matched:
			col = annotate.Green
			confidence = annotate.ConfidenceText(res.Confidence, c.threshold)
		case Unknown:
			if res.Confidence > 0 {
				confidence = annotate.ConfidenceText(res.Confidence, c.threshold)
			}
		}

		status := ""
		if res.Attendance != nil {
			status = res.Attendance.Message()
		}
		canvas.Face(box, res.Name, confidence, status, col)
	}
}

// recognizeFace classifies one face and marks attendance for a match.
// Failures are recorded on the result; they never abort the frame.
func (c *Controller) recognizeFace(ctx context.Context, frame image.Image, box image.Rectangle) FaceResult {
	res := FaceResult{Box: box, Outcome: Unknown, Name: unknownName}

	match, err := c.vision.Recognize(ctx, vision.Crop(frame, box, vision.CropMargin))
	switch {
	case errors.Is(err, vision.ErrNoMatch):
		return res
	case err != nil:
		c.log.Warn().Err(err).Msg("recognition failed")
		res.Outcome = DetectionError
		res.Err = err
		return res
	}

	res.Confidence = match.Confidence
	if !match.Accepted(c.threshold) {
		return res
	}

	res.Outcome = Matched
	res.IdentityID = match.IdentityID

	name, ok, err := c.lookupName(ctx, match.IdentityID)
	if err != nil {
		c.log.Error().Err(err).Int64("id", match.IdentityID).Msg("identity lookup failed")
		res.Err = err
		c.metrics.Attendance("error")
		return res
	}
	if !ok {
		c.log.Warn().Int64("id", match.IdentityID).Msg("recognized identity is not enrolled, attendance not marked")
		return res
	}
	res.Name = name

	outcome, err := c.attendance.Mark(ctx, database.Identity{ID: match.IdentityID, Name: name}, c.now())
	if err != nil {
		c.log.Error().Err(err).Int64("id", match.IdentityID).Msg("failed to mark attendance")
		res.Err = err
		c.metrics.Attendance("error")
		return res
	}

	c.metrics.Attendance(outcome.Kind.String())
	if outcome.Recorded() {
		res.Attendance = &outcome
		c.log.Info().Int64("id", match.IdentityID).Str("name", name).Str("event", outcome.Kind.String()).Msg("attendance marked")
	}
	return res
}
