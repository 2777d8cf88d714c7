package initializers

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from .env into the process environment. A missing
// file is fine; deployments usually set the environment directly.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...) // using the joho library to load variables from the .env file
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("env not loading: %w", err)
	}
	return nil
}
