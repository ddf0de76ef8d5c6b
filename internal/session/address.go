package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"huffdbg/internal/huff"
)

// DeriveAddress returns the first 20 bytes of keccak256(content) as a
// lowercase 0x-prefixed hex string. The same content always deploys to
// the same address and any change to it moves the address.
func DeriveAddress(content []byte) string {
	return hexutil.Encode(crypto.Keccak256(content)[:20])
}

// MacroFingerprint is the canonical serialization a macro session is
// addressed by.
func MacroFingerprint(m huff.Macro) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize macro %s: %w", m.Name, err)
	}
	return b, nil
}

// MacroAddress derives the contract address for a macro session.
func MacroAddress(m huff.Macro) (string, error) {
	b, err := MacroFingerprint(m)
	if err != nil {
		return "", err
	}
	return DeriveAddress(b), nil
}

// DetectMountedDrive returns the lowercase drive letter a Windows working
// directory appears under when tools run through WSL (/mnt/<drive>), or ""
// when no mount prefix applies.
func DetectMountedDrive(goos, workDir string) string {
	if goos != "windows" {
		return ""
	}
	if len(workDir) >= 2 && workDir[1] == ':' && isLetter(workDir[0]) {
		return strings.ToLower(workDir[:1])
	}
	return ""
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
