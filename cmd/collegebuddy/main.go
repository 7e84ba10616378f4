// Command collegebuddy serves and maintains the College Buddy question-answering backend.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
