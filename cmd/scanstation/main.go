// cmd/scanstation is a terminal check-in station. A QR scanner in
// keyboard-wedge mode types each decoded payload followed by Enter; an empty
// line dismisses the current result.
//
// Config (env): SCANNER_API_URL, SCANNER_STAFF_TOKEN, SCANNER_TIMEOUT.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"confcheckin/internal/scanner"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SCANNER_API_URL", "http://localhost:8000")
	v.SetDefault("SCANNER_TIMEOUT", "10s")

	token := v.GetString("SCANNER_STAFF_TOKEN")
	if token == "" {
		log.Fatal().Msg("SCANNER_STAFF_TOKEN is required (a staff access token from /v1/auth/login)")
	}

	sub := scanner.NewHTTPSubmitter(v.GetString("SCANNER_API_URL"), token, v.GetDuration("SCANNER_TIMEOUT"))
	loop := scanner.NewLoop(sub, scanner.WithObserver(render))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		in := bufio.NewScanner(os.Stdin)
		for in.Scan() {
			line := strings.TrimSpace(in.Text())
			if line == "" {
				loop.Dismiss()
				continue
			}
			loop.Frame(line)
		}
		if err := in.Err(); err != nil {
			log.Error().Err(err).Msg("stdin read failed")
		}
		stop()
	}()

	log.Info().Str("api", v.GetString("SCANNER_API_URL")).Msg("scan station ready")
	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("scan loop stopped")
	}
}

func render(s scanner.Snapshot) {
	switch s.State {
	case scanner.Scanning:
		if s.Message != "" {
			fmt.Printf("· %s\n", s.Message)
			return
		}
		fmt.Println("· ready, scan a badge")
	case scanner.Submitting:
		fmt.Printf("… checking %s\n", s.Token)
	case scanner.Success:
		fmt.Printf("✔ welcome %s <%s>\n", s.User.Name, s.User.Email)
	case scanner.AlreadyCheckedIn:
		fmt.Printf("! %s is already checked in\n", s.User.Name)
	case scanner.Error:
		fmt.Printf("✘ %s\n", s.Message)
	}
}
