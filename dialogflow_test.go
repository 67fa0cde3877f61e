package dialogflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/dialogflow/config"
	"github.com/BaSui01/dialogflow/types"
)

func TestNewWithDefaults(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	result, err := eng.ProcessTurn(context.Background(), "root-defaults", "你好")
	require.NoError(t, err)
	assert.Equal(t, types.IntentGreeting, result.Intent)
	assert.NotEmpty(t, result.Reply)
}

func TestNewAppliesOptions(t *testing.T) {
	persona := types.DefaultPersona()
	persona.Name = "阿福"

	eng, err := New(WithPersona(persona), WithMetricsNamespace("dialogflow_root_test"))
	require.NoError(t, err)

	result, err := eng.ProcessTurn(context.Background(), "root-options", "你好")
	require.NoError(t, err)
	assert.Contains(t, result.Reply, "阿福")
}

func TestFromConfigDefaults(t *testing.T) {
	eng, err := FromConfig(config.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	result, err := eng.ProcessTurn(context.Background(), "root-config", "我想预约挂号")
	require.NoError(t, err)
	assert.Equal(t, types.IntentAppointmentBooking, result.Intent)
	assert.NotEmpty(t, result.Reply)
}

func TestFromConfigRejectsInvalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.Backend = "etcd"
	_, err := FromConfig(cfg, nil, nil)
	assert.Error(t, err)
}

func TestFromConfigWithoutBuiltinFlows(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Flows.Builtin = false
	eng, err := FromConfig(cfg, nil, nil)
	require.NoError(t, err)

	_, err = eng.StartFlow(context.Background(), "root-noflows", "booking")
	assert.Error(t, err, "builtin flows disabled")
}
