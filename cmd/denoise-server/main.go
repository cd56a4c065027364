// Command denoise-server hosts the spectral denoising engine behind
// HTTP and WebSocket endpoints.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"noisereduce/internal/server"
)

func main() {
	port := pflag.IntP("port", "p", 8080, "server port")
	fftSize := pflag.Int("fft-size", 2048, "STFT size in samples")
	overlap := pflag.Int("overlap", 4, "STFT overlap factor")
	profilePath := pflag.String("profile-path", "", "path to persist the learned noise profile (disabled if empty)")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := server.Config{
		Addr:        fmt.Sprintf(":%d", *port),
		FFTSize:     *fftSize,
		Overlap:     *overlap,
		ProfilePath: *profilePath,
	}

	s := server.New(cfg, logger)

	logger.Info("listening", "addr", cfg.Addr, "fft_size", cfg.FFTSize, "overlap", cfg.Overlap)
	if err := http.ListenAndServe(cfg.Addr, s.Handler()); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}
