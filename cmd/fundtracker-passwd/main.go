// Command fundtracker-passwd reads a password on stdin and prints a
// bcrypt hash for ADMIN_PASSWORD_HASH.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"fundtracker/internal/auth"
)

func main() {
	hash, err := run(os.Stdin, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fundtracker-passwd:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func run(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(prompt)
	return auth.HashPassword(strings.TrimRight(line, "\r\n"))
}
