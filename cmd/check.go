package main

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/log-when/pono/internal/engine"
	"github.com/log-when/pono/internal/result"
	"github.com/log-when/pono/internal/smt"
	"github.com/log-when/pono/internal/ts"
)

var (
	engineName string
	bound      int
	systemName string
	verbose    bool
)

var checkCommand = &cobra.Command{
	Use:   "check",
	Short: "check a safety property on a built-in transition system",
	Long:  ``,
	Run: func(*cobra.Command, []string) {
		if err := checkExec(); err != nil {
			fmt.Printf("service err: %v", err)
		} else {
			fmt.Printf("service quit")
		}
	},
}

func init() {
	checkCommand.Flags().StringVar(&engineName, "engine", "ic3", "proof engine (ic3 or ic3sa)")
	checkCommand.Flags().IntVar(&bound, "bound", 10, "maximum unrolling depth")
	checkCommand.Flags().StringVar(&systemName, "system", "counter4", "built-in system (counter4, counter, pair)")
	checkCommand.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

func checkExec() error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	smt.Init()
	defer smt.Exit()

	sys, prop, err := buildSystem(systemName)
	if err != nil {
		return err
	}

	var strat engine.Strategy
	switch engineName {
	case "ic3":
		strat = engine.NewBitLevel()
	case "ic3sa":
		strat = engine.NewSyntaxGuided()
	default:
		return errors.Errorf("unknown engine %q", engineName)
	}

	eng := engine.NewEngine(sys, prop, strat)
	defer eng.Close()

	res, err := eng.CheckUntil(bound)
	if err != nil {
		return err
	}
	fmt.Printf("%s: property %s\n", systemName, res)
	if res == result.Violated {
		trace, werr := eng.Witness()
		if werr != nil {
			return werr
		}
		fmt.Print(trace)
	}
	return nil
}

// buildSystem constructs one of the built-in demo systems together with
// the safety property to check on it.
func buildSystem(name string) (*ts.TransitionSystem, *smt.Term, error) {
	sys := ts.New()
	switch name {
	case "counter4":
		// wrap-around counter over 3-bit vectors; 4 is never reached
		x := sys.MakeStateVar("x", smt.BitVecSort(3))
		if err := sys.SetInit(smt.Eq(x, smt.BVConst(0, 3))); err != nil {
			return nil, nil, err
		}
		next := smt.Ite(smt.Eq(x, smt.BVConst(3, 3)), smt.BVConst(0, 3), smt.BVAdd(x, smt.BVConst(1, 3)))
		if err := sys.AssignNext(x, next); err != nil {
			return nil, nil, err
		}
		return sys, smt.Not(smt.Eq(x, smt.BVConst(4, 3))), nil
	case "counter":
		// unbounded integer counter; reaches 3 after three steps
		x := sys.MakeStateVar("x", smt.IntSort())
		if err := sys.SetInit(smt.Eq(x, smt.IntConst(0))); err != nil {
			return nil, nil, err
		}
		if err := sys.AssignNext(x, smt.IntAdd(x, smt.IntConst(1))); err != nil {
			return nil, nil, err
		}
		return sys, smt.Not(smt.Eq(x, smt.IntConst(3))), nil
	case "pair":
		// two registers that start equal and never change
		a := sys.MakeStateVar("a", smt.BitVecSort(3))
		b := sys.MakeStateVar("b", smt.BitVecSort(3))
		if err := sys.SetInit(smt.Eq(a, b)); err != nil {
			return nil, nil, err
		}
		if err := sys.AssignNext(a, a); err != nil {
			return nil, nil, err
		}
		if err := sys.AssignNext(b, b); err != nil {
			return nil, nil, err
		}
		return sys, smt.Eq(a, b), nil
	}
	return nil, nil, errors.Errorf("unknown system %q", name)
}
