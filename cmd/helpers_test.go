package cmd

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"steamlink/internal/authservice"
	"steamlink/internal/cli"
	"steamlink/internal/credential"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "76561197960287930",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return signed
}

// testEnv is a configuration directory whose provider and relay point at
// httptest servers.
type testEnv struct {
	configDir string
	dataDir   string
	provider  *httptest.Server
	relay     *httptest.Server
}

func newTestEnv(t *testing.T, provider, relayHandler http.Handler) *testEnv {
	t.Helper()
	if provider == nil {
		provider = http.NotFoundHandler()
	}
	if relayHandler == nil {
		relayHandler = http.NotFoundHandler()
	}

	env := &testEnv{
		configDir: t.TempDir(),
		provider:  httptest.NewServer(provider),
		relay:     httptest.NewServer(relayHandler),
	}
	t.Cleanup(env.provider.Close)
	t.Cleanup(env.relay.Close)
	env.dataDir = filepath.Join(env.configDir, "data")

	yaml := fmt.Sprintf(`provider:
  baseURL: %s
  deviceNameTemplate: "NXD-test"
relay:
  baseURL: %s
  companionURL: https://companion.example/pair
  pollInterval: 10ms
log:
  level: error
`, env.provider.URL, env.relay.URL)
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.yaml"), []byte(yaml), 0600))
	return env
}

func (e *testEnv) store() *credential.Store {
	return credential.NewStore(e.dataDir)
}

// run executes the root command with args against the environment.
func (e *testEnv) run(args ...string) (string, string, error) {
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config-path", e.configDir}, args...))

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags() {
	dataDir = ""
	logLevel = ""
	logFormat = ""
	authQuiet = false
	loginForce = false
	relayMode = ""
	relayCode = ""
	tokenHeader = false
	statusFlags = cli.CommandFlags{OutputFormat: string(cli.OutputFormatTable)}
}

// protoReply writes a protowire body the way the provider does.
func protoReply(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-eresult", "1")
	_, _ = w.Write(body)
}

func beginResponse(clientID uint64, url string, interval float32) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, clientID)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, url)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0xAB, 0xCD})
	b = protowire.AppendTag(b, 4, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(interval))
	return b
}

func pollReadyResponse(accessToken, refreshToken, accountName string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, refreshToken)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendString(b, accessToken)
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendString(b, accountName)
	return b
}

func pollRotatedResponse(newClientID uint64, url string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, newClientID)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, url)
	return b
}

func refreshResponse(accessToken, refreshToken string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, accessToken)
	if refreshToken != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, refreshToken)
	}
	return b
}

// fakeProvider answers the three provider endpoints. Each poll pops the
// next scripted reply; once exhausted it answers pending.
func fakeProvider(t *testing.T, polls [][]byte, refresh []byte) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(authservice.EndpointBeginAuthSessionViaQR, func(w http.ResponseWriter, r *http.Request) {
		protoReply(w, beginResponse(42, "https://s.team/q/1/42", 0.01))
	})
	mux.HandleFunc(authservice.EndpointPollAuthSessionStatus, func(w http.ResponseWriter, r *http.Request) {
		if len(polls) == 0 {
			protoReply(w, nil)
			return
		}
		next := polls[0]
		polls = polls[1:]
		protoReply(w, next)
	})
	mux.HandleFunc(authservice.EndpointGenerateAccessTokenForApp, func(w http.ResponseWriter, r *http.Request) {
		if refresh == nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		protoReply(w, refresh)
	})
	return mux
}
