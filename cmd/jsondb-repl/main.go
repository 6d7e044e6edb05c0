// Command jsondb-repl is an interactive console over a JsonDb
// database: it opens (or creates) the named database directory and
// runs a read-eval-print loop, one transaction per command.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jimsnab/go-lane"
	"golang.org/x/term"

	"github.com/wvankleunen/jsondb/jsondb"
	"github.com/wvankleunen/jsondb/kvengine"
	"github.com/wvankleunen/jsondb/kvengine/badgerkv"
	"github.com/wvankleunen/jsondb/kvengine/memkv"
)

const usage = "USAGE: jsondb-repl [-db=<directory>] [-ephemeral]\n"

func main() {
	dbDir := flag.String("db", "jsondb.dat", "database directory")
	ephemeral := flag.Bool("ephemeral", false, "keep the database in memory, discarding it on exit")
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Print(usage)
		os.Exit(1)
	}

	sessionID := uuid.New().String()
	l := lane.NewLogLane(context.Background())

	var store kvengine.Store
	if *ephemeral {
		l.Infof("starting jsondb-repl session %s (ephemeral)", sessionID)
		store = memkv.New()
	} else {
		l.Infof("starting jsondb-repl session %s on %s", sessionID, *dbDir)
		var err error
		store, err = badgerkv.Open(*dbDir, kvengine.OpenFlags{CreateIfMissing: true, WriterExclusive: true})
		if err != nil {
			l.Fatalf("open %s: %s", *dbDir, err)
		}
	}
	db := jsondb.Open(store, l)
	defer db.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	runLoop(db, l, os.Stdin, os.Stdout, interactive)
}

func runLoop(db *jsondb.Db, l lane.Lane, in *os.File, out *os.File, interactive bool) {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "jsondb> ")
		}
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		if cmd == "quit" || cmd == "exit" {
			return
		}
		if cmd == "help" {
			printHelp(out)
			continue
		}

		if err := dispatch(db, out, cmd, args); err != nil {
			l.Errorf("%s: %s", cmd, err)
			fmt.Fprintf(out, "ERROR: %s\n", err)
		}
	}
}

func printHelp(out *os.File) {
	fmt.Fprint(out, `commands:
  get <path>                read a scalar value
  put <path> <value>        write an int, float, bool, or string value
  putjson <path> <json>     graft a JSON literal at path
  append <path> <value>     append a scalar to the array at path
  mkarray <path> [n]        create an array of n null entries at path (default 0)
  exists <path>             report whether path resolves
  delete <path>             delete the subtree at path
  print <path>              pretty-print the subtree at path
  validate                  walk the tree checking for dangling references
  help                      show this message
  quit                      end the session
`)
}

func dispatch(db *jsondb.Db, out *os.File, cmd string, args []string) error {
	tx, err := db.StartTransaction()
	if err != nil {
		return err
	}

	var runErr error
	switch cmd {
	case "get":
		runErr = cmdGet(tx, out, args)
	case "put":
		runErr = cmdPut(tx, args)
	case "putjson":
		runErr = cmdPutJson(tx, args)
	case "append":
		runErr = cmdAppend(tx, args)
	case "mkarray":
		runErr = cmdMkArray(tx, args)
	case "exists":
		runErr = cmdExists(tx, out, args)
	case "delete":
		runErr = cmdDelete(tx, args)
	case "print":
		runErr = cmdPrint(tx, out, args)
	case "validate":
		runErr = tx.Validate()
	default:
		runErr = fmt.Errorf("unrecognized command %q (try 'help')", cmd)
	}

	// get/exists/print already wrote their own output; every other
	// successful command echoes "OK".
	switch cmd {
	case "get", "exists", "print":
	default:
		if runErr == nil {
			fmt.Fprintln(out, "OK")
		}
	}

	if runErr != nil {
		_ = tx.Abort()
		return runErr
	}
	return tx.Commit()
}

func cmdGet(tx *jsondb.Tx, out *os.File, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: get <path>")
	}
	if v, err := tx.GetString(args[0]); err == nil {
		fmt.Fprintln(out, v)
		return nil
	}
	if v, err := tx.GetInt(args[0]); err == nil {
		fmt.Fprintln(out, v)
		return nil
	}
	if v, err := tx.GetReal(args[0]); err == nil {
		fmt.Fprintln(out, v)
		return nil
	}
	v, err := tx.GetBool(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, v)
	return nil
}

func cmdPut(tx *jsondb.Tx, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: put <path> <value>")
	}
	return tx.Set(args[0], parseScalar(args[1]), true)
}

func cmdPutJson(tx *jsondb.Tx, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: putjson <path> <json>")
	}
	literal := strings.Join(args[1:], " ")
	return tx.SetJson(args[0], literal, true)
}

func cmdAppend(tx *jsondb.Tx, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: append <path> <value>")
	}
	return tx.AppendArray(args[0], parseScalar(args[1]))
}

func cmdMkArray(tx *jsondb.Tx, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: mkarray <path> [n]")
	}
	n := 0
	if len(args) == 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("mkarray: invalid entry count %q", args[1])
		}
		n = v
	}
	return tx.SetArray(args[0], n, true)
}

func cmdExists(tx *jsondb.Tx, out *os.File, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: exists <path>")
	}
	ok, err := tx.Exists(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, ok)
	return nil
}

func cmdDelete(tx *jsondb.Tx, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <path>")
	}
	return tx.Delete(args[0])
}

func cmdPrint(tx *jsondb.Tx, out *os.File, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: print <path>")
	}
	return tx.Print(out, args[0])
}

// parseScalar guesses a Go type for a REPL argument: bool, then
// integer, then float, falling back to string.
func parseScalar(arg string) interface{} {
	if b, err := strconv.ParseBool(arg); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(arg, 10, 32); err == nil {
		return int32(i)
	}
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		return f
	}
	return arg
}
