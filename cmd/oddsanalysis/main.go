// Standalone odds analysis tool for the settler outcome simulator.
// It draws many results through the same simulator the scanner uses and
// compares the observed frequencies with the probabilities implied by the odds.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"settler/models"
	"settler/service"
)

// chiSquaredCritical is the 95% critical value for 2 degrees of freedom
const chiSquaredCritical = 5.991

func main() {
	trials := flag.Int("trials", 100000, "number of simulated draws per odds set")
	seed := flag.Int64("seed", 0, "random seed, 0 for a time-based seed")
	stake := flag.Int64("stake", 1000, "stake used for the expected value analysis")
	flag.Parse()

	oddsSets := [][3]float64{
		{2.0, 4.0, 4.0},
		{2.5, 3.2, 2.8},
		{1.5, 4.5, 6.0},
		{3.0, 3.0, 3.0},
	}
	if flag.NArg() > 0 {
		oddsSets = oddsSets[:0]
		for _, arg := range flag.Args() {
			odds, err := parseOdds(arg)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			oddsSets = append(oddsSets, odds)
		}
	}

	source := rand.New(rand.NewSource(*seed))
	if *seed == 0 {
		source = rand.New(rand.NewSource(rand.Int63()))
	}
	simulator := service.NewOutcomeSimulatorWithSource(source)

	fmt.Println("=== Settler Outcome Simulator Analysis ===")
	for _, odds := range oddsSets {
		if err := analyzeOdds(simulator, odds, *trials, *stake); err != nil {
			fmt.Fprintf(os.Stderr, "odds %v: %v\n", odds, err)
		}
	}
}

// parseOdds reads "A/Draw/B", for example "2.0/4.0/4.0"
func parseOdds(arg string) ([3]float64, error) {
	var odds [3]float64
	parts := strings.Split(arg, "/")
	if len(parts) != 3 {
		return odds, fmt.Errorf("odds %q must look like A/Draw/B", arg)
	}
	for i, part := range parts {
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return odds, fmt.Errorf("odds %q: %w", arg, err)
		}
		odds[i] = value
	}
	return odds, nil
}

func analyzeOdds(simulator service.OutcomeSimulator, odds [3]float64, trials int, stake int64) error {
	event := &models.Event{
		OddsA:    odds[0],
		OddsDraw: odds[1],
		OddsB:    odds[2],
		State:    models.EventStateScheduled,
		Mode:     models.EventModeSimulated,
	}

	probs, err := service.ImpliedProbabilities(event)
	if err != nil {
		return err
	}

	counts := map[models.Side]int{}
	for i := 0; i < trials; i++ {
		side, err := simulator.Simulate(event)
		if err != nil {
			return err
		}
		counts[side]++
	}

	fmt.Printf("\nOdds A %.2f | Draw %.2f | B %.2f over %d draws\n", odds[0], odds[1], odds[2], trials)
	fmt.Println("--------------------------------------------------------")

	sides := []struct {
		side     models.Side
		odds     float64
		expected float64
	}{
		{models.SideA, odds[0], probs.SideA},
		{models.SideDraw, odds[1], probs.Draw},
		{models.SideB, odds[2], probs.SideB},
	}

	chiSquared := 0.0
	for _, s := range sides {
		observed := float64(counts[s.side]) / float64(trials)
		expectedCount := s.expected * float64(trials)
		chiSquared += math.Pow(float64(counts[s.side])-expectedCount, 2) / expectedCount

		// Expected profit for the bettor staking on this side
		payout := math.Round(float64(stake) * s.odds)
		expectedValue := s.expected*payout - float64(stake)

		fmt.Printf("  %-4s implied %6.2f%% | observed %6.2f%% | EV of a %d stake: %+9.2f\n",
			s.side, s.expected*100, observed*100, stake, expectedValue)
	}

	verdict := "PASS"
	if chiSquared >= chiSquaredCritical {
		verdict = "FAIL"
	}
	fmt.Printf("  χ² = %.3f (critical %.3f at 95%%, 2 df) %s\n", chiSquared, chiSquaredCritical, verdict)
	return nil
}
