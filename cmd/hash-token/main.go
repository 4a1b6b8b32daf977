package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/logger"
)

// MinTokenLength is the minimum diagnostics token length
const MinTokenLength = 16

var (
	letterPattern = regexp.MustCompile(`[a-zA-Z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
)

func main() {
	token := flag.String("token", "", "Diagnostics token to hash (read from stdin when empty)")
	flag.Parse()

	log := logger.New("info", "console")
	defer log.Sync()

	value := *token
	if value == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatal("Failed to read token from stdin", zap.Error(err))
		}
		value = strings.TrimSpace(line)
	}

	if err := validateToken(value); err != nil {
		log.Fatal("Validation error", zap.Error(err))
	}

	hash, err := auth.HashToken(value)
	if err != nil {
		log.Fatal("Failed to hash token", zap.Error(err))
	}

	log.Info("Diagnostics token hashed; send it in the " + auth.DiagnosticsHeader + " header")
	fmt.Printf("DIAGNOSTICS_TOKEN_HASH=%s\n", hash)
}

// validateToken rejects tokens that are easy to guess
func validateToken(token string) error {
	if len(token) < MinTokenLength {
		return fmt.Errorf("token must be at least %d characters long", MinTokenLength)
	}
	if !letterPattern.MatchString(token) || !digitPattern.MatchString(token) {
		return fmt.Errorf("token must contain at least one letter and one number")
	}
	return nil
}
