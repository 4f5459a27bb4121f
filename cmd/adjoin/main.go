// Command adjoin is a standalone Active Directory computer-account enrollment
// client. It parses flags/environment/config file into internal/config.Config,
// establishes the directory/Kerberos connection, and drives internal/enroll's
// Prepare/Join pipeline. It contains no enrollment logic of its own — every
// decision belongs to internal/enroll.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
