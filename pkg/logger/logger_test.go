package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/prestamos-api/pkg/logger"
)

func TestNew_JSONConNivelYComponente(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "warn", Out: &buf})

	log.Info().Msg("descartado")
	log.WithComponent("workflow").Warn().Str("request_id", "r-1").Msg("transición rechazada")

	out := buf.String()
	assert.NotContains(t, out, "descartado", "info no debe escribirse con nivel warn")
	assert.Contains(t, out, `"component":"workflow"`)
	assert.Contains(t, out, `"request_id":"r-1"`)
}

func TestNop_NoEscribe(t *testing.T) {
	log := logger.Nop()
	assert.NotPanics(t, func() { log.Error().Msg("nada") })
}
