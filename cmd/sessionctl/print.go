package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/megayours/tma-session/auth"
	"github.com/megayours/tma-session/session"
)

func printStatus(w io.Writer, st auth.Status, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "state:\t%s\n", st.State)
	fmt.Fprintf(tw, "host environment:\t%t\n", st.IsHostEnvironment)
	fmt.Fprintf(tw, "attempted:\t%t\n", st.HasAttemptedAuth)
	if st.Err != nil {
		fmt.Fprintf(tw, "error:\t%v\n", st.Err)
	}
	_ = tw.Flush()

	if st.Session != nil {
		printSession(w, st.Session, now)
	}
}

// printSession never prints the credential or the auth token.
func printSession(w io.Writer, s session.Session, now time.Time) {
	id := s.GetIdentity()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "provider:\t%s\n", s.Provider())
	fmt.Fprintf(tw, "id:\t%s\n", id.ID)
	fmt.Fprintf(tw, "username:\t%s\n", id.Username)
	if exp, ok := s.Expiration(); ok {
		remaining, _ := session.RemainingValidity(s, now)
		fmt.Fprintf(tw, "expires:\t%s (in %s)\n", exp.Format(time.RFC3339), remaining.Truncate(time.Second))
	} else {
		fmt.Fprintf(tw, "expires:\tnever (valid until logout)\n")
	}
	_ = tw.Flush()
}
