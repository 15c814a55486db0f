package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kizaaaa/certichain/internal/app"
	"github.com/Kizaaaa/certichain/internal/eth"
)

func TestRunKeygen(t *testing.T) {
	t.Run("json output parses back", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RunKeygen(&buf, "json"))

		var out map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

		_, err := app.ParseTokenKey(out["token_signing_key"])
		require.NoError(t, err)

		signer, err := eth.NewKeySignerFromHex(out["issuer_private_key"])
		require.NoError(t, err)
		assert.Equal(t, out["issuer_address"], signer.Address().Hex())
	})

	t.Run("text output is dotenv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RunKeygen(&buf, "text"))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "TOKEN_SIGNING_KEY="))
		assert.True(t, strings.HasPrefix(lines[1], "ISSUER_PRIVATE_KEY="))
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		assert.Error(t, RunKeygen(&bytes.Buffer{}, "yaml"))
	})
}
