package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// KeyPair is an ed25519 key generated for a test run.
type KeyPair struct {
	Signer        ssh.Signer
	PrivateKeyPEM []byte
}

func (k KeyPair) PublicKey() ssh.PublicKey {
	return k.Signer.PublicKey()
}

// GenerateKeyPair creates an ed25519 key, optionally encrypted with passphrase.
func GenerateKeyPair(t *testing.T, passphrase string) KeyPair {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	return KeyPair{Signer: signer, PrivateKeyPEM: pem.EncodeToMemory(block)}
}

// CreateSSHPrivateKeyOnDisk writes the key to a temp file removed at test end.
func CreateSSHPrivateKeyOnDisk(t *testing.T, key KeyPair) string {
	t.Helper()

	path, cleanup, err := WriteStringToTempFile(string(key.PrivateKeyPEM))
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return path
}

// WriteKnownHosts writes a known_hosts file trusting hostKey for addr.
func WriteKnownHosts(t *testing.T, addr string, hostKey ssh.PublicKey) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(addr)}, hostKey)
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o600))
	return path
}
