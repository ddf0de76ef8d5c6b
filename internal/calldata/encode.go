package calldata

import (
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Encoder builds calldata for a function signature and string arguments.
type Encoder interface {
	Encode(signature string, args []string) (string, error)
}

// ABIEncoder encodes with the standard contract ABI.
type ABIEncoder struct{}

// Encode implements Encoder.
func (ABIEncoder) Encode(signature string, args []string) (string, error) {
	return Encode(signature, args)
}

var signaturePattern = regexp.MustCompile(`^([A-Za-z_$][A-Za-z0-9_$]*)\((.*)\)$`)

// Signature is a parsed function signature.
type Signature struct {
	Name   string
	Params []string
}

// Canonical returns the form hashed for the selector, e.g. "transfer(address,uint256)".
func (s Signature) Canonical() string {
	return s.Name + "(" + strings.Join(s.Params, ",") + ")"
}

// Selector returns the first four bytes of keccak256 of the canonical form.
func (s Signature) Selector() []byte {
	return crypto.Keccak256([]byte(s.Canonical()))[:4]
}

// ParseSignature parses "name(type,...)". Whitespace is ignored.
func ParseSignature(sig string) (Signature, error) {
	compact := strings.Join(strings.Fields(sig), "")
	m := signaturePattern.FindStringSubmatch(compact)
	if m == nil {
		return Signature{}, fmt.Errorf("malformed function signature %q", sig)
	}
	s := Signature{Name: m[1]}
	if m[2] == "" {
		return s, nil
	}
	for _, p := range strings.Split(m[2], ",") {
		if p == "" {
			return Signature{}, fmt.Errorf("empty parameter type in %q", sig)
		}
		s.Params = append(s.Params, p)
	}
	return s, nil
}

// Encode returns the 0x-prefixed selector followed by the ABI-encoded args.
func Encode(signature string, args []string) (string, error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return "", err
	}
	if len(args) != len(sig.Params) {
		return "", fmt.Errorf("%s expects %d arguments, got %d", sig.Canonical(), len(sig.Params), len(args))
	}

	arguments := make(abi.Arguments, 0, len(sig.Params))
	values := make([]interface{}, 0, len(args))
	for i, p := range sig.Params {
		typ, err := abi.NewType(p, "", nil)
		if err != nil {
			return "", fmt.Errorf("parameter %d: %w", i, err)
		}
		v, err := convert(typ, args[i])
		if err != nil {
			return "", fmt.Errorf("argument %d (%s): %w", i, p, err)
		}
		arguments = append(arguments, abi.Argument{Type: typ})
		values = append(values, v)
	}

	packed, err := arguments.Pack(values...)
	if err != nil {
		return "", fmt.Errorf("failed to pack arguments: %w", err)
	}
	return hexutil.Encode(append(sig.Selector(), packed...)), nil
}

func convert(typ abi.Type, arg string) (interface{}, error) {
	arg = strings.TrimSpace(arg)
	switch typ.T {
	case abi.AddressTy:
		if !common.IsHexAddress(arg) {
			return nil, fmt.Errorf("invalid address %q", arg)
		}
		return common.HexToAddress(arg), nil
	case abi.BoolTy:
		return strconv.ParseBool(arg)
	case abi.StringTy:
		return arg, nil
	case abi.BytesTy:
		return hexutil.Decode(arg)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(arg)
		if err != nil {
			return nil, err
		}
		if len(b) > typ.Size {
			return nil, fmt.Errorf("%d bytes do not fit in bytes%d", len(b), typ.Size)
		}
		arr := reflect.New(typ.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.UintTy, abi.IntTy:
		return convertInt(typ, arg)
	default:
		return nil, fmt.Errorf("unsupported parameter type %s", typ.String())
	}
}

func convertInt(typ abi.Type, arg string) (interface{}, error) {
	n, ok := new(big.Int).SetString(arg, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", arg)
	}

	signed := typ.T == abi.IntTy
	if !signed && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for unsigned type", arg)
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size))
	if signed {
		limit.Rsh(limit, 1)
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%s overflows %s", arg, typ.String())
		}
	} else if n.Cmp(limit) >= 0 {
		return nil, fmt.Errorf("%s overflows %s", arg, typ.String())
	}

	// 8, 16, 32 and 64 bit widths pack from the matching Go integer type,
	// every other width from *big.Int.
	goType := typ.GetType()
	if goType.Kind() == reflect.Ptr {
		return n, nil
	}
	if signed {
		return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
}
