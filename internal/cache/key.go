package cache

import "strings"

// ReservedKeyCharacters may not appear anywhere in a cache key.
const ReservedKeyCharacters = `{}()/\@:`

// ValidateKey trims surrounding whitespace from raw and rejects keys that
// contain a reserved character. An empty key is accepted.
func ValidateKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return key, nil
	}
	if strings.ContainsAny(key, ReservedKeyCharacters) {
		return "", invalidKey(key)
	}
	return key, nil
}

// ValidateKeys validates every key before returning. The first invalid key
// aborts the whole batch.
func ValidateKeys(raw []string) ([]string, error) {
	keys := make([]string, len(raw))
	for i, k := range raw {
		key, err := ValidateKey(k)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}
