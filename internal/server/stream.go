package server

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"noisereduce/internal/denoise"
)

const defaultStreamSampleRate = 48000
const defaultStreamMaxBlock = 8192
const controlFrameEvery = 50

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// controlFrame is sent as a JSON text message alongside the binary PCM
// frames, giving the client visibility into engine state without
// affecting processing.
type controlFrame struct {
	SessionID     string  `json:"session_id"`
	FramesLearned float64 `json:"frames_learned"`
	WetDry        float64 `json:"wet_dry"`
}

// handleStream handles GET /stream: a WebSocket endpoint that accepts
// binary messages of little-endian float32 PCM and replies with the
// same number of denoised samples. One Engine is created per
// connection and lives for the connection's duration, matching the
// engine's single-session concurrency model.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sampleRate := defaultStreamSampleRate
	if v := r.URL.Query().Get("sample_rate"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			sampleRate = parsed
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New()
	engine := s.newEngine(sampleRate, defaultStreamMaxBlock)
	params := denoise.DefaultParams()

	s.metrics.ActiveStreams.Inc()
	defer s.metrics.ActiveStreams.Dec()
	s.logger.Info("stream opened", "session", sessionID)
	defer s.logger.Info("stream closed", "session", sessionID)

	hop := s.cfg.FFTSize / s.cfg.Overlap
	samplesIn := 0
	frameCount := 0
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			s.applyStreamControl(data, &params)
		case websocket.BinaryMessage:
			if len(data)%4 != 0 {
				continue
			}
			n := len(data) / 4
			if n > defaultStreamMaxBlock {
				continue
			}
			input := make([]float32, n)
			for i := 0; i < n; i++ {
				bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
				input[i] = math.Float32frombits(bits)
			}
			output := make([]float32, n)
			if err := engine.Run(input, output, n, params); err != nil {
				s.logger.Error("stream run", "session", sessionID, "err", err)
				continue
			}

			out := make([]byte, n*4)
			for i := 0; i < n; i++ {
				binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(output[i]))
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
				return
			}

			// The framer fires one STFT frame every hop samples consumed.
			frames := float64((samplesIn+n)/hop - samplesIn/hop)
			samplesIn += n
			if params.LearnNoise {
				s.metrics.FramesLearned.Add(frames)
			} else {
				s.metrics.FramesProcessed.Add(frames)
			}
			if engine.LastTransient() {
				s.metrics.TransientFrames.Inc()
			}

			frameCount++
			if frameCount%controlFrameEvery == 0 {
				s.metrics.WetDryLevel.Set(engine.WetDry())
				cf := controlFrame{
					SessionID:     sessionID.String(),
					FramesLearned: engine.NoiseProfile().FramesLearned(),
					WetDry:        engine.WetDry(),
				}
				if msg, err := json.Marshal(cf); err == nil {
					conn.WriteMessage(websocket.TextMessage, msg)
				}
			}
		}
	}
}

// applyStreamControl decodes a JSON control message from the client
// and updates the session's params in place. Unknown or malformed
// messages are ignored rather than closing the connection.
func (s *Server) applyStreamControl(data []byte, params *denoise.Params) {
	var patch struct {
		Enable              *bool    `json:"enable"`
		LearnNoise          *bool    `json:"learn_noise"`
		ResidualListen      *bool    `json:"residual_listen"`
		AdaptiveLearn       *bool    `json:"adaptive_learn"`
		ReductionAmount     *float64 `json:"reduction_amount"`
		WhiteningFactor     *float64 `json:"whitening_factor"`
		TransientThreshold  *float64 `json:"transient_threshold"`
		MaskingCeilingLimit *float64 `json:"masking_ceiling_limit"`
		ReleaseTimeMs       *float64 `json:"release_time_ms"`
		NoiseRescale        *float64 `json:"noise_rescale"`
	}
	if err := json.Unmarshal(data, &patch); err != nil {
		return
	}

	if patch.Enable != nil {
		params.Enable = *patch.Enable
	}
	if patch.LearnNoise != nil {
		params.LearnNoise = *patch.LearnNoise
	}
	if patch.ResidualListen != nil {
		params.ResidualListen = *patch.ResidualListen
	}
	if patch.AdaptiveLearn != nil {
		params.AdaptiveLearn = *patch.AdaptiveLearn
	}
	if patch.ReductionAmount != nil {
		params.ReductionAmount = *patch.ReductionAmount
	}
	if patch.WhiteningFactor != nil {
		params.WhiteningFactor = *patch.WhiteningFactor
	}
	if patch.TransientThreshold != nil {
		params.TransientThreshold = *patch.TransientThreshold
	}
	if patch.MaskingCeilingLimit != nil {
		params.MaskingCeilingLimit = *patch.MaskingCeilingLimit
	}
	if patch.ReleaseTimeMs != nil {
		params.ReleaseTimeMs = *patch.ReleaseTimeMs
	}
	if patch.NoiseRescale != nil {
		params.NoiseRescale = *patch.NoiseRescale
	}
}
