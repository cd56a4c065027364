// Package server hosts the denoise engine behind HTTP and WebSocket
// endpoints: one-shot file denoising, realtime streaming, noise-profile
// persistence, and Prometheus metrics. None of this is part of the core
// engine; it is glue a plugin host would otherwise provide.
package server

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"noisereduce/internal/denoise"
	"noisereduce/internal/wav"
)

const maxUploadSize = 50 << 20 // 50 MB

// Config controls how the server constructs engines and where it reads
// and writes the persisted noise profile.
type Config struct {
	Addr        string
	FFTSize     int
	Overlap     int
	ProfilePath string
}

// Server wires the denoise engine into an HTTP mux. It holds no engine
// of its own: /denoise builds a fresh engine per request and /stream
// builds one per connection, matching the engine's single-threaded,
// one-instance-per-stream concurrency model.
type Server struct {
	cfg     Config
	logger  *log.Logger
	metrics *Metrics
	mux     *http.ServeMux
}

// New builds a Server and registers its routes.
func New(cfg Config, logger *log.Logger) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: NewMetrics(reg),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("/denoise", s.handleDenoise)
	s.mux.HandleFunc("/stream", s.handleStream)
	s.mux.HandleFunc("/profile/save", s.handleProfileSave)
	s.mux.HandleFunc("/profile/load", s.handleProfileLoad)
	s.mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return s
}

// Handler returns the server's http.Handler, with CORS and logging
// middleware applied.
func (s *Server) Handler() http.Handler {
	return cors(logging(s.logger, s.mux))
}

// newEngine builds an engine sized for the server's configured FFT
// size and overlap at the given sample rate, able to process a single
// block of up to maxBlockSize samples without reallocating.
func (s *Server) newEngine(sampleRate, maxBlockSize int) *denoise.Engine {
	plan := denoise.NewGonumPlan(s.cfg.FFTSize)
	return denoise.NewEngine(plan, denoise.Vorbis, denoise.Vorbis, s.cfg.Overlap, sampleRate, maxBlockSize)
}

// handleDenoise handles POST /denoise: a multipart "file" upload of a
// WAV file, returned as a denoised WAV. Query parameters select the
// engine parameters (see paramsFromQuery); if the server has a
// ProfilePath configured, an existing profile is loaded before running
// unless learn_noise is set, in which case the profile is saved back
// after running.
func (s *Server) handleDenoise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.logger.Error("parse upload", "err", err)
		http.Error(w, "failed to parse upload", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	samples, sampleRate, err := wav.Read(data)
	if err != nil {
		http.Error(w, "invalid WAV file: "+err.Error(), http.StatusBadRequest)
		return
	}

	params := paramsFromQuery(r)
	engine := s.newEngine(sampleRate, len(samples))

	if s.cfg.ProfilePath != "" && !params.LearnNoise {
		s.loadProfileInto(engine)
	}

	output := make([]float32, len(samples))
	if err := engine.Run(samples, output, len(samples), params); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if params.LearnNoise && s.cfg.ProfilePath != "" {
		s.saveProfileFrom(engine)
	}

	frames := float64(len(samples) / (s.cfg.FFTSize / s.cfg.Overlap))
	if params.LearnNoise {
		s.metrics.FramesLearned.Add(frames)
	} else {
		s.metrics.FramesProcessed.Add(frames)
	}
	s.metrics.WetDryLevel.Set(engine.WetDry())

	result := wav.Write(output, sampleRate)

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", "attachment; filename=\"cleaned.wav\"")
	w.Write(result)
}

// handleProfileSave handles POST /profile/save: denoises nothing,
// just writes the server's persisted profile file back out as the
// response body, for a client that wants a copy.
func (s *Server) handleProfileSave(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ProfilePath == "" {
		http.Error(w, "no profile path configured", http.StatusNotImplemented)
		return
	}
	f, err := os.Open(s.cfg.ProfilePath)
	if err != nil {
		http.Error(w, "no profile saved yet", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/yaml")
	io.Copy(w, f)
}

// handleProfileLoad handles POST /profile/load: accepts a profile
// document in the request body and writes it to the server's
// configured ProfilePath, validating it parses before committing.
func (s *Server) handleProfileLoad(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ProfilePath == "" {
		http.Error(w, "no profile path configured", http.StatusNotImplemented)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	probe := s.newEngine(defaultStreamSampleRate, 1)
	if _, err := denoise.LoadProfile(bytes.NewReader(body), probe); err != nil {
		http.Error(w, "invalid profile: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := os.WriteFile(s.cfg.ProfilePath, body, 0o644); err != nil {
		s.logger.Error("write profile", "err", err)
		http.Error(w, "failed to store profile", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadProfileInto(e *denoise.Engine) {
	f, err := os.Open(s.cfg.ProfilePath)
	if err != nil {
		return
	}
	defer f.Close()

	ok, err := denoise.LoadProfile(f, e)
	if err != nil {
		s.logger.Warn("load profile", "err", err)
		return
	}
	if !ok {
		s.logger.Warn("profile fft_size mismatch, ignoring")
	}
}

func (s *Server) saveProfileFrom(e *denoise.Engine) {
	f, err := os.Create(s.cfg.ProfilePath)
	if err != nil {
		s.logger.Error("create profile file", "err", err)
		return
	}
	defer f.Close()

	if err := denoise.SaveProfile(f, e); err != nil {
		s.logger.Error("save profile", "err", err)
	}
}

// paramsFromQuery builds engine Params from URL query parameters,
// falling back to DefaultParams for anything unset or malformed.
func paramsFromQuery(r *http.Request) denoise.Params {
	p := denoise.DefaultParams()
	q := r.URL.Query()

	p.Enable = queryBool(q, "enable", p.Enable)
	p.LearnNoise = queryBool(q, "learn_noise", p.LearnNoise)
	p.ResidualListen = queryBool(q, "residual_listen", p.ResidualListen)
	p.AdaptiveLearn = queryBool(q, "adaptive_learn", p.AdaptiveLearn)

	p.ReductionAmount = queryFloat(q, "reduction_amount", p.ReductionAmount)
	p.WhiteningFactor = queryFloat(q, "whitening_factor", p.WhiteningFactor)
	p.TransientThreshold = queryFloat(q, "transient_threshold", p.TransientThreshold)
	p.MaskingCeilingLimit = queryFloat(q, "masking_ceiling_limit", p.MaskingCeilingLimit)
	p.ReleaseTimeMs = queryFloat(q, "release_time_ms", p.ReleaseTimeMs)
	p.NoiseRescale = queryFloat(q, "noise_rescale", p.NoiseRescale)

	return p
}

func queryBool(q map[string][]string, key string, fallback bool) bool {
	v, ok := q[key]
	if !ok || len(v) == 0 {
		return fallback
	}
	b, err := strconv.ParseBool(v[0])
	if err != nil {
		return fallback
	}
	return b
}

func queryFloat(q map[string][]string, key string, fallback float64) float64 {
	v, ok := q[key]
	if !ok || len(v) == 0 {
		return fallback
	}
	f, err := strconv.ParseFloat(v[0], 64)
	if err != nil {
		return fallback
	}
	return f
}
