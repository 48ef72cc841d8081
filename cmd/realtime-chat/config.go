package main

import (
	"fmt"
	"os"

	"github.com/koscakluka/aiproxy-core/core/protocol"
	"github.com/koscakluka/aiproxy-core/core/proxy"
)

const (
	sinkMiniaudio = "miniaudio"
	sinkPortaudio = "portaudio"
)

type config struct {
	proxyOptions []proxy.Option
	partialKey   string
	session      protocol.SessionConfig
	audio        bool
	sink         string
	microphone   bool
}

func loadConfig() (config, error) {
	partialKey, ok := os.LookupEnv(envPartialKey)
	if !ok || partialKey == "" {
		return config{}, fmt.Errorf("%s is not set", envPartialKey)
	}

	cfg := config{
		partialKey: partialKey,
		session:    protocol.DefaultSessionConfig(),
		audio:      !textOnly,
		sink:       sinkName,
		microphone: microphone && !textOnly,
	}
	switch cfg.sink {
	case sinkMiniaudio, sinkPortaudio:
	default:
		return config{}, fmt.Errorf("unknown audio sink %q", cfg.sink)
	}
	if cfg.microphone && cfg.sink != sinkMiniaudio {
		return config{}, fmt.Errorf("microphone capture requires the %s sink", sinkMiniaudio)
	}
	if serviceURL, ok := os.LookupEnv(envServiceURL); ok && serviceURL != "" {
		cfg.proxyOptions = append(cfg.proxyOptions, proxy.WithServiceURL(serviceURL))
	}
	if clientID, ok := os.LookupEnv(envClientID); ok && clientID != "" {
		cfg.proxyOptions = append(cfg.proxyOptions, proxy.WithClientID(clientID))
	}

	cfg.session.Voice = voice
	if instructions != "" {
		cfg.session.Instructions = instructions
	}
	if textOnly {
		cfg.session.Modalities = []protocol.Modality{protocol.ModalityText}
	}
	if err := cfg.session.Validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}
