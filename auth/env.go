package auth

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rusq/osenv/v2"
)

const (
	tokenKey  = "SLACK_TOKEN"
	cookieKey = "SLACK_COOKIE"

	clientTokenPrefix = "xoxc-"
	cookiePrefix      = "xoxd-"
)

// NewEnvAuth constructs a provider from the SLACK_TOKEN and SLACK_COOKIE
// environment variables.
func NewEnvAuth() (*ValueAuth, error) {
	return NewValueAuth(osenv.Secret(tokenKey, ""), osenv.Secret(cookieKey, ""))
}

// ParseDotEnv reads SLACK_TOKEN and SLACK_COOKIE from a dotenv-style secrets
// file.
func ParseDotEnv(filename string) (string, string, error) {
	dir := filepath.Dir(filename)
	return parseDotEnv(os.DirFS(dir), filepath.Base(filename))
}

func parseDotEnv(fsys fs.FS, filename string) (string, string, error) {
	f, err := fsys.Open(filename)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	secrets, err := godotenv.Parse(f)
	if err != nil {
		return "", "", errors.New("not a secrets file")
	}
	token, ok := secrets[tokenKey]
	if !ok {
		return "", "", errors.New("no SLACK_TOKEN found in the file")
	}
	if !strings.HasPrefix(token, clientTokenPrefix) {
		return "", "", errors.New("unsupported token type, expected a client token")
	}
	cookie, ok := secrets[cookieKey]
	if !ok {
		return "", "", errors.New("no SLACK_COOKIE found in the file")
	}
	if !strings.HasPrefix(strings.TrimPrefix(cookie, "d="), cookiePrefix) {
		return "", "", errors.New("invalid cookie")
	}
	return token, cookie, nil
}
