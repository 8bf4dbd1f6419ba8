// seatctl 命令行工具：通过 HTTP API 上传名单、查看与编辑分配结果
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"examseat/client"
	"examseat/common/logger"
	"examseat/internal/domain"

	"go.uber.org/zap"
)

const usage = `usage: seatctl [-server URL] [-o file] <command> [args]

commands:
  allocate <subject> <file.csv|file.xlsx>   upload a roster and allocate seats
  results                                   print every dataset
  show <subject> [room]                     print a dataset or one room
  remove <subject> <room> <roll number>     remove one student from a room
  replace <subject> <room> [roll numbers]   overwrite a room's roster
  drop <subject>                            delete a dataset
  export <subject> [xlsx|csv]               download the roster (see -o)
  rooms [add <id> <capacity> | rm <id>]     list or edit the room catalog
  events [limit]                            recent roster events
`

func main() {
	server := flag.String("server", envOr("EXAMSEAT_URL", "http://localhost:8080"), "examseat API base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	verbose := flag.Bool("v", false, "debug logging")
	output := flag.String("o", "", "output file for export (default: <dataset>.<format>)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.NewLogger(level, "console", "seatctl")
	if err != nil {
		log = zap.NewNop()
	}
	defer log.Sync()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*server, log)
	if err := run(ctx, c, args, *output, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "seatctl:", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")

func run(ctx context.Context, c *client.Client, args []string, output string, out io.Writer) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "allocate":
		if len(args) != 2 {
			return errUsage
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		res, err := c.Allocate(ctx, args[0], filepath.Base(args[1]), f)
		if err != nil {
			return err
		}
		printRecords(out, res.Dataset.Records)
		fmt.Fprintf(out, "\n%s: %d seated, %d unseated across %d rooms (capacity %d)\n",
			res.Dataset.Name, res.Summary.Seated, res.Summary.Unseated, res.Summary.Rooms, res.Summary.Capacity)
		return nil

	case "results":
		results, err := c.Results(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, results)

	case "show":
		switch len(args) {
		case 1:
			ds, err := c.Dataset(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (subject %q, run %s)\n", ds.Name, ds.Subject, ds.RunID)
			printRecords(out, ds.Records)
			return nil
		case 2:
			rec, err := c.Record(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			printRecords(out, []domain.AssignmentRecord{*rec})
			return nil
		}
		return errUsage

	case "remove":
		if len(args) != 3 {
			return errUsage
		}
		rec, err := c.RemoveOccupant(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		printRecords(out, []domain.AssignmentRecord{*rec})
		return nil

	case "replace":
		if len(args) < 2 {
			return errUsage
		}
		var ids []string
		for _, a := range args[2:] {
			ids = append(ids, strings.Split(a, ",")...)
		}
		rec, err := c.ReplaceOccupants(ctx, args[0], args[1], ids)
		if err != nil {
			return err
		}
		printRecords(out, []domain.AssignmentRecord{*rec})
		return nil

	case "drop":
		if len(args) != 1 {
			return errUsage
		}
		if err := c.Drop(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "dropped %s\n", args[0])
		return nil

	case "export":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		format := "xlsx"
		if len(args) == 2 {
			format = args[1]
		}
		data, err := c.Export(ctx, args[0], format)
		if err != nil {
			return err
		}
		if output == "" {
			name, err := domain.CanonicalName(args[0])
			if err != nil {
				return err
			}
			output = name + "." + format
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s (%d bytes)\n", output, len(data))
		return nil

	case "rooms":
		return runRooms(ctx, c, args, out)

	case "events":
		limit := 20
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errUsage
			}
			limit = n
		}
		events, err := c.Events(ctx, limit)
		if err != nil {
			return err
		}
		return printJSON(out, events)
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

func runRooms(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		rooms, err := c.Rooms(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ROOM\tCAPACITY\tPOSITION")
		for _, r := range rooms {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", r.RoomID, r.Capacity, r.Position)
		}
		fmt.Fprintf(tw, "total\t%d\t\n", domain.TotalCapacity(rooms))
		return tw.Flush()
	}

	switch args[0] {
	case "add":
		if len(args) != 3 {
			return errUsage
		}
		capacity, err := strconv.Atoi(args[2])
		if err != nil {
			return errUsage
		}
		room, err := c.UpsertRoom(ctx, domain.Room{RoomID: args[1], Capacity: capacity})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s (capacity %d, position %d)\n", room.RoomID, room.Capacity, room.Position)
		return nil
	case "rm":
		if len(args) != 2 {
			return errUsage
		}
		if err := c.DeleteRoom(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", args[1])
		return nil
	}
	return errUsage
}

func printRecords(out io.Writer, records []domain.AssignmentRecord) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOM\tCOUNT/CAP\tROLL NUMBERS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d/%d\t%s\n", r.RoomID, r.OccupantCount, r.Capacity, strings.Join(r.Occupants, " "))
	}
	_ = tw.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
