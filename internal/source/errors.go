package source

import "fmt"

func errSourceNotRunning(name string) error {
	return fmt.Errorf("source %s is not running", name)
}
