package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lightninglabs/htlcswap/fsm"
	"github.com/lightninglabs/htlcswap/htlc"
	"github.com/lightninglabs/htlcswap/orderbook"
	"github.com/lightninglabs/htlcswap/partialfill"
)

// machines maps the name of every state machine of the engine to its
// transition table.
var machines = map[string]func() fsm.States{
	"htlc": func() fsm.States {
		return (&htlc.FSM{}).GetHTLCStates()
	},
	"order": func() fsm.States {
		return (&orderbook.OrderFSM{}).GetOrderStates()
	},
	"fill": func() fsm.States {
		return (&partialfill.FillFSM{}).GetFillStates()
	},
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	out := flag.String("out", "", "outfile")
	stateMachine := flag.String("fsm", "", "the state machine to render")
	flag.Parse()

	if filepath.Ext(*out) != ".md" {
		return errors.New("wrong argument: out must be a .md file")
	}

	fp, err := filepath.Abs(*out)
	if err != nil {
		return err
	}

	states, ok := machines[*stateMachine]
	if !ok {
		fmt.Println("Missing or wrong argument: fsm must be one of:")
		for _, name := range sortedNames() {
			fmt.Printf("\t%v\n", name)
		}

		return nil
	}

	return os.WriteFile(fp, mermaid(states()), 0644)
}

// mermaid renders the transition table as a mermaid state diagram. States
// and transitions are sorted so the output is stable.
func mermaid(states fsm.States) []byte {
	var b bytes.Buffer
	fmt.Fprint(&b, "```mermaid\nstateDiagram-v2\n")

	for _, state := range sortedStates(states) {
		edges := states[fsm.StateType(state)]

		// write state name
		name := state
		if len(name) > 0 {
			fmt.Fprintf(&b, "%s\n", name)
		} else {
			name = "[*]"
		}

		events := make([]string, 0, len(edges.Transitions))
		for event := range edges.Transitions {
			events = append(events, string(event))
		}
		sort.Strings(events)

		// write transitions
		for _, event := range events {
			target := edges.Transitions[fsm.EventType(event)]
			fmt.Fprintf(&b, "%s --> %s: %s\n", name, target, event)
		}

		if len(edges.Transitions) == 0 {
			fmt.Fprintf(&b, "%s --> [*]\n", name)
		}
	}

	fmt.Fprint(&b, "```\n")

	return b.Bytes()
}

func sortedStates(m fsm.States) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	return keys
}

func sortedNames() []string {
	names := make([]string, 0, len(machines))
	for name := range machines {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
