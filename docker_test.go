package main_test

import (
	"os"
	"strings"
	"testing"
)

func readBuildFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("%s should exist: %v", name, err)
	}
	return string(data)
}

func TestDockerfile(t *testing.T) {
	content := readBuildFile(t, "Dockerfile")

	checks := []struct {
		name    string
		substr  string
		message string
	}{
		{name: "go builder stage", substr: "FROM golang:", message: "Dockerfile should contain a Go builder stage"},
		{name: "binary name", substr: "bearfolio", message: "Dockerfile should build a binary named 'bearfolio'"},
		{name: "entrypoint", substr: "ENTRYPOINT", message: "Dockerfile should declare an ENTRYPOINT"},
		{name: "healthcheck subcommand", substr: "healthcheck", message: "Dockerfile should use the healthcheck subcommand for HEALTHCHECK"},
		{name: "static build", substr: "CGO_ENABLED=0", message: "Dockerfile should build a static binary for distroless"},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if !strings.Contains(content, c.substr) {
				t.Error(c.message)
			}
		})
	}

	// 最終ステージは軽量イメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
		t.Errorf("final stage should use a minimal base image, got: %s", lastFrom)
	}
}

func TestDockerCompose(t *testing.T) {
	content := readBuildFile(t, "docker-compose.yml")

	// 3コンテナ構成: api, worker, db
	for _, svc := range []string{"api:", "worker:", "db:"} {
		if !strings.Contains(content, svc) {
			t.Errorf("docker-compose.yml should contain service %q", svc)
		}
	}

	// pgvector入りのPostgreSQLイメージを使用していること
	if !strings.Contains(content, "pgvector") {
		t.Error("docker-compose.yml should use a PostgreSQL image with pgvector")
	}

	// workerサービスがworkerサブコマンドで起動すること
	if !strings.Contains(content, `["worker"]`) {
		t.Error("docker-compose.yml worker service should start with the 'worker' subcommand")
	}

	// DBは内部ネットワークのみに接続すること
	if !strings.Contains(content, "internal: true") {
		t.Error("docker-compose.yml should isolate the database on an internal network")
	}
}
