// Command adminhash prints a password hash suitable for ROOMS_ADMIN_PASSWORD_HASH.
//
// The password is read from -password or, when the flag is empty, from the
// first line of standard input.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/room-tracker/internal/application"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "adminhash: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("adminhash", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	password := fs.String("password", "", "password to hash (reads stdin when empty)")
	useBcrypt := fs.Bool("bcrypt", false, "emit a bcrypt hash instead of argon2id")
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret := *password
	if secret == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if secret == "" {
		return errors.New("password must not be empty")
	}

	var (
		hash string
		err  error
	)
	if *useBcrypt {
		hash, err = application.CreateBcryptHash(secret, *cost)
	} else {
		hash, err = application.CreatePasswordHash(secret, application.DefaultArgon2idParams)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
