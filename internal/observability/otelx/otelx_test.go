package otelx

import (
	"context"
	"errors"
	"testing"

	"github.com/bakkerme/jobalert/internal/config"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), nil, config.OTelEnvConfig{})
	if err != nil || shutdown != nil {
		t.Fatalf("expected no-op init, got shutdown=%v err=%v", shutdown != nil, err)
	}
	ctx, span := StartSpan(context.Background(), "jobalert.test")
	if ctx == nil || span == nil {
		t.Fatalf("expected span from the global provider")
	}
	EndSpan(span, errors.New("boom"))
}

func TestEndpointDefaults(t *testing.T) {
	cases := []struct {
		cfg      config.OTelEnvConfig
		protocol string
		endpoint string
	}{
		{config.OTelEnvConfig{}, "grpc", "localhost:4317"},
		{config.OTelEnvConfig{Protocol: "http"}, "http/protobuf", "localhost:4318"},
		{config.OTelEnvConfig{Protocol: " GRPC ", Endpoint: "collector:4317"}, "grpc", "collector:4317"},
	}
	for _, tc := range cases {
		if got := protocolOrDefault(tc.cfg); got != tc.protocol {
			t.Errorf("protocolOrDefault(%+v)=%q want %q", tc.cfg, got, tc.protocol)
		}
		if got := endpointOrDefault(tc.cfg); got != tc.endpoint {
			t.Errorf("endpointOrDefault(%+v)=%q want %q", tc.cfg, got, tc.endpoint)
		}
	}
}

func TestGRPCEndpointStripsScheme(t *testing.T) {
	got, err := grpcEndpoint(config.OTelEnvConfig{Endpoint: "https://otel.example.com:4317"})
	if err != nil {
		t.Fatalf("grpcEndpoint: %v", err)
	}
	if got != "otel.example.com:4317" {
		t.Fatalf("grpcEndpoint = %q", got)
	}
}

func TestUnsupportedProtocol(t *testing.T) {
	if _, err := newTraceExporter(context.Background(), config.OTelEnvConfig{Protocol: "zipkin"}); err == nil {
		t.Fatalf("expected protocol error")
	}
}
