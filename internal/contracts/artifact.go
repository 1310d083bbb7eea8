package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is the creation code of a contract the client deploys itself.
type Artifact struct {
	Kind     Kind
	Bytecode []byte
}

// NewArtifact wraps raw creation code. Only kinds with a constructor are deployable.
func NewArtifact(kind Kind, bytecode []byte) (*Artifact, error) {
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("empty bytecode for %s", kind)
	}
	if ABI(kind).Constructor.Inputs == nil {
		return nil, fmt.Errorf("%s is not deployable", kind)
	}
	return &Artifact{Kind: kind, Bytecode: common.CopyBytes(bytecode)}, nil
}

// LoadArtifact reads a compiler output file ({"bytecode": "0x..."}) for kind.
func LoadArtifact(kind Kind, path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var file struct {
		ContractName string `json:"contractName"`
		Bytecode     string `json:"bytecode"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	if !strings.HasPrefix(file.Bytecode, "0x") {
		file.Bytecode = "0x" + file.Bytecode
	}
	code, err := hexutil.Decode(file.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode in %s: %w", path, err)
	}
	return NewArtifact(kind, code)
}

// DeployData returns creation code followed by the encoded constructor arguments.
func (a *Artifact) DeployData(args ...any) ([]byte, error) {
	packed, err := Pack(a.Kind, "", args...)
	if err != nil {
		return nil, err
	}
	return append(common.CopyBytes(a.Bytecode), packed...), nil
}
