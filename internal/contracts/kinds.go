package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Kind identifies one of the ledger contract interfaces.
type Kind uint8

const (
	Registry Kind = iota + 1
	Property
	Category
	Unit
	Token
)

var kindNames = map[Kind]string{
	Registry: "registry",
	Property: "property",
	Category: "category",
	Unit:     "unit",
	Token:    "token",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown contract kind %q", name)
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{Registry, Property, Category, Unit, Token}
}

var interfaces = map[Kind]*abi.ABI{
	Registry: mustParse(RegistryABI),
	Property: mustParse(PropertyABI),
	Category: mustParse(CategoryABI),
	Unit:     mustParse(UnitABI),
	Token:    mustParse(TokenABI),
}

func mustParse(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("failed to parse contract ABI: %v", err))
	}
	return &parsed
}

// ABI returns the parsed interface of kind. It panics on an unknown kind.
func ABI(k Kind) *abi.ABI {
	parsed, ok := interfaces[k]
	if !ok {
		panic(fmt.Sprintf("no ABI registered for %s", k))
	}
	return parsed
}
