package password

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	keyLength   uint32
	salt        []byte
	hash        []byte
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	out := &phc{}
	if err := out.parseParams(parts[3]); err != nil {
		return nil, err
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	hash, err := decodeB64(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, errors.New("invalid hash")
	}

	out.salt = salt
	out.hash = hash
	out.keyLength = uint32(len(hash))
	return out, nil
}

func (p *phc) parseParams(part string) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(part, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || seen[k] {
			return errors.New("invalid parameter entry")
		}
		seen[k] = true

		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			p.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return errors.New("invalid time parameter")
			}
			p.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return errors.New("invalid parallelism parameter")
			}
			p.parallelism = uint8(n)
		default:
			return errors.New("unsupported parameter")
		}
	}
	if len(seen) != 3 {
		return errors.New("missing parameters")
	}
	return nil
}

// decodeB64 accepts both padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
