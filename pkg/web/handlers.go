package web

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-yoloface/pkg/detection"
	"github.com/teslashibe/go-yoloface/pkg/hub"
	"github.com/teslashibe/go-yoloface/pkg/render"
	"gocv.io/x/gocv"
)

// Box is a detection in source-image pixels.
type Box struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

// DetectResponse is the JSON body returned for one detected image.
type DetectResponse struct {
	RequestID  string  `json:"request_id"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Detections []Box   `json:"detections"`
	LatencyMS  float64 `json:"latency_ms"`
}

// Event is published on /ws/events after every detection.
type Event struct {
	RequestID string  `json:"request_id"`
	Source    string  `json:"source"` // "http" or "ws"
	Faces     int     `json:"faces"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
	Time      string  `json:"time"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// handleHealth reports liveness and, for remote detectors, backend readiness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	if hc, ok := s.detector.(HealthChecker); ok {
		if err := hc.Health(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "unavailable",
				"backend": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok", "backend": "ready"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleDetect accepts a multipart "image" upload.
func (s *Server) handleDetect(c *fiber.Ctx) error {
	id := RequestID(c)

	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "missing image field", RequestID: id})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error(), RequestID: id})
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error(), RequestID: id})
	}

	minScore := c.QueryFloat("min_score", s.config.MinScore)
	annotate := c.QueryBool("annotate", false)

	img, err := detection.DecodeImage(data)
	if err != nil {
		s.publish(Event{RequestID: id, Source: "http", Error: err.Error()})
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error(), RequestID: id})
	}
	defer img.Close()

	resp, dets, err := s.detect(c.UserContext(), id, img, minScore)
	if err != nil {
		s.publish(Event{RequestID: id, Source: "http", Error: err.Error()})
		return c.Status(statusFor(err)).JSON(errorResponse{Error: err.Error(), RequestID: id})
	}
	s.publish(Event{RequestID: id, Source: "http", Faces: len(dets), LatencyMS: resp.LatencyMS})

	if !annotate {
		return c.JSON(resp)
	}

	if _, err := render.Draw(&img, dets, s.config.Render); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error(), RequestID: id})
	}
	jpeg, err := render.EncodeJPEG(img)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error(), RequestID: id})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(jpeg)
}

type wsFrame struct {
	kind int
	data []byte
}

// handleDetectWS treats every binary message as one encoded image. Frames
// are read on a separate goroutine so a disconnect cancels the detection
// in flight.
func (s *Server) handleDetectWS(conn *websocket.Conn) {
	logger := s.logger.With("remote", conn.RemoteAddr().String())
	logger.Debug("detect stream opened")
	defer logger.Debug("detect stream closed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan wsFrame)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case frames <- wsFrame{kind: kind, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// The reader must be gone before the connection is released.
	defer func() {
		cancel()
		conn.Close()
		for range frames {
		}
	}()

	for f := range frames {
		id := uuid.NewString()
		var reply any
		if f.kind != websocket.BinaryMessage {
			reply = errorResponse{Error: "expected a binary image frame", RequestID: id}
		} else {
			reply = s.detectFrame(ctx, id, f.data)
		}
		if ctx.Err() != nil {
			return
		}

		out, err := json.Marshal(reply)
		if err != nil {
			logger.Error("encode reply", "error", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}

func (s *Server) detectFrame(ctx context.Context, id string, data []byte) any {
	img, err := detection.DecodeImage(data)
	if err != nil {
		s.publish(Event{RequestID: id, Source: "ws", Error: err.Error()})
		return errorResponse{Error: err.Error(), RequestID: id}
	}
	defer img.Close()

	resp, dets, err := s.detect(ctx, id, img, s.config.MinScore)
	if err != nil {
		s.publish(Event{RequestID: id, Source: "ws", Error: err.Error()})
		return errorResponse{Error: err.Error(), RequestID: id}
	}
	s.publish(Event{RequestID: id, Source: "ws", Faces: len(dets), LatencyMS: resp.LatencyMS})
	return resp
}

// handleEventsWS subscribes the connection to the detection event feed.
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	if !s.events.IsRunning() {
		return
	}
	client, err := hub.NewClient(s.events, conn)
	if err != nil {
		return
	}
	client.Run()
}

func (s *Server) detect(ctx context.Context, id string, img gocv.Mat, minScore float64) (*DetectResponse, []detection.Detection, error) {
	start := time.Now()

	dets, err := s.detector.Detect(ctx, img)
	if err != nil {
		s.logger.Error("detect failed", "request_id", id, "error", err)
		return nil, nil, err
	}
	dets = detection.FilterByConfidence(dets, minScore)

	resp := &DetectResponse{
		RequestID:  id,
		Width:      img.Cols(),
		Height:     img.Rows(),
		Detections: make([]Box, len(dets)),
		LatencyMS:  float64(time.Since(start).Microseconds()) / 1000,
	}
	for i, d := range dets {
		resp.Detections[i] = Box{X: d.X, Y: d.Y, W: d.W, H: d.H, Confidence: d.Confidence}
	}
	return resp, dets, nil
}

// publish is a no-op until the hub is running.
func (s *Server) publish(ev Event) {
	if !s.events.IsRunning() {
		return
	}
	ev.Time = time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.events.Publish(ev); err != nil {
		s.logger.Warn("publish event", "error", err)
	}
}

// statusFor maps detector errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, detection.ErrEmptyImage):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusBadGateway
	}
}
