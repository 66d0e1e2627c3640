package engine

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/piwi3910/PitPlan/internal/model"
)

// Score weights
const (
	countErrorWeight = 1.4
	gradeErrorWeight = 1.0

	// transferRate is the chance per mutation of moving quantity between regions
	transferRate = 0.3
	// quantityStepFraction bounds a quantity mutation relative to the region maximum
	quantityStepFraction = 0.15
	// convergenceFraction is the relative tolerance on both targets
	convergenceFraction = 0.005
)

// gene is the plan decision for a single region.
type gene struct {
	angle    int
	quantity int
}

// chromosome holds one gene per prepared region, in region order.
type chromosome struct {
	genes []gene
	score float64
	total int
	avg   float64
}

// geneticOptimizer implements the genetic algorithm for plan generation.
// An instance serves a single run and is not safe for concurrent use.
type geneticOptimizer struct {
	config      model.GeneticConfig
	regions     []*optRegion
	target      int // min(requested point count, sum of region maxima)
	targetCount int
	targetGrade float64
	rng         *Mulberry32
}

func newGeneticOptimizer(config model.GeneticConfig, regions []*optRegion, targetCount int, targetGrade float64, seed uint32) *geneticOptimizer {
	capacity := 0
	for _, r := range regions {
		capacity += r.max
	}
	return &geneticOptimizer{
		config:      config,
		regions:     regions,
		target:      min(targetCount, capacity),
		targetCount: targetCount,
		targetGrade: targetGrade,
		rng:         NewMulberry32(seed),
	}
}

// run executes the generational loop until convergence, stall, the
// generation cap or cancellation.
func (g *geneticOptimizer) run(ctx context.Context, opts Options) Result {
	population := g.initPopulation()
	for i := range population {
		g.evaluate(&population[i])
	}
	g.rank(population)
	best := g.copyChromosome(population[0])

	status := StatusRunning
	stall := 0
	gen := 0
	if g.converged(best) {
		status = StatusConverged
	}

	for status == StatusRunning {
		if cancelled(ctx, opts.ShouldStop) {
			status = StatusCancelled
			break
		}
		if gen >= g.config.Generations {
			status = StatusGenerationCapReached
			break
		}

		population = g.nextGeneration(population)
		gen++

		if population[0].score < best.score {
			best = g.copyChromosome(population[0])
			stall = 0
		} else {
			stall++
		}

		if opts.OnProgress != nil && gen%g.config.ProgressEvery == 0 {
			opts.OnProgress(gen, g.decode(best))
		}

		switch {
		case g.converged(best):
			status = StatusConverged
		case stall >= g.config.StallGenerations:
			status = StatusStallExhausted
		}

		if gen%g.config.YieldEvery == 0 {
			if opts.OnYield != nil {
				opts.OnYield(gen)
			}
			runtime.Gosched()
		}
	}

	return Result{
		Candidate:   g.decode(best),
		Status:      status,
		Completed:   status != StatusCancelled,
		Generations: gen,
	}
}

func cancelled(ctx context.Context, shouldStop func() bool) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return shouldStop != nil && shouldStop()
}

// nextGeneration keeps the elite verbatim and fills the rest with evaluated
// offspring. The returned population is ranked.
func (g *geneticOptimizer) nextGeneration(population []chromosome) []chromosome {
	newPop := make([]chromosome, 0, g.config.PopulationSize)

	eliteCount := min(g.config.EliteCount, len(population))
	for i := 0; i < eliteCount; i++ {
		newPop = append(newPop, g.copyChromosome(population[i]))
	}

	for len(newPop) < g.config.PopulationSize {
		parent1 := g.tournamentSelect(population)
		parent2 := g.tournamentSelect(population)

		child := g.crossover(parent1, parent2)
		g.mutate(&child)
		g.evaluate(&child)

		newPop = append(newPop, child)
	}

	g.rank(newPop)
	return newPop
}

// rank sorts the population by score, lowest first.
func (g *geneticOptimizer) rank(population []chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].score < population[j].score
	})
}

// initPopulation creates the initial random population. Each individual
// activates a random subset of regions, gives them random quantities and is
// renormalized to the target.
func (g *geneticOptimizer) initPopulation() []chromosome {
	n := len(g.regions)
	population := make([]chromosome, g.config.PopulationSize)

	for i := range population {
		genes := make([]gene, n)
		anyActive := false
		for j, r := range g.regions {
			genes[j].angle = r.validAngles[g.rng.Intn(len(r.validAngles))]
			if g.rng.Float64() < 0.5 {
				genes[j].quantity = 1 + g.rng.Intn(r.max)
				anyActive = true
			}
		}
		if !anyActive {
			j := g.rng.Intn(n)
			genes[j].quantity = 1 + g.rng.Intn(g.regions[j].max)
		}

		c := chromosome{genes: genes}
		g.renormalize(&c)
		population[i] = c
	}

	return population
}

// evaluate extracts each gene's quantity from its region and scores the result.
func (g *geneticOptimizer) evaluate(c *chromosome) {
	total := 0
	gradeSum := 0.0
	active := 0
	for i, gn := range c.genes {
		if gn.quantity <= 0 {
			continue
		}
		active++
		n, sum := g.regions[i].extract(gn.angle, gn.quantity)
		total += n
		gradeSum += sum
	}

	c.total = total
	if total == 0 {
		c.avg = 0
		c.score = math.Inf(1)
		return
	}
	c.avg = gradeSum / float64(total)

	countErr := math.Abs(float64(total-g.targetCount)) / magnitude(float64(g.targetCount))
	gradeErr := math.Abs(c.avg-g.targetGrade) / magnitude(g.targetGrade)
	c.score = countErrorWeight*countErr + gradeErrorWeight*gradeErr + g.config.SparsityPenalty*float64(active)
}

// magnitude is the normalizer for a relative error against a target.
func magnitude(target float64) float64 {
	if target == 0 {
		return 1
	}
	return math.Abs(target)
}

// converged reports whether the candidate is within tolerance of both targets.
func (g *geneticOptimizer) converged(c chromosome) bool {
	if math.IsInf(c.score, 1) {
		return false
	}
	countTol := math.Max(1, convergenceFraction*float64(g.targetCount))
	gradeTol := convergenceFraction * math.Max(math.Abs(g.targetGrade), 1)
	return math.Abs(float64(c.total-g.targetCount)) <= countTol &&
		math.Abs(c.avg-g.targetGrade) <= gradeTol
}

// tournamentSelect picks the best individual from a random tournament.
func (g *geneticOptimizer) tournamentSelect(population []chromosome) chromosome {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.config.TournamentSize; i++ {
		candidate := population[g.rng.Intn(len(population))]
		if candidate.score < best.score {
			best = candidate
		}
	}
	return g.copyChromosome(best)
}

// crossover builds a child that, per region, takes the angle from one parent
// and the quantity from the other.
func (g *geneticOptimizer) crossover(parent1, parent2 chromosome) chromosome {
	child := chromosome{genes: make([]gene, len(parent1.genes))}
	for i, r := range g.regions {
		angleFrom, qtyFrom := parent1, parent2
		if g.rng.Float64() < 0.5 {
			angleFrom, qtyFrom = parent2, parent1
		}
		child.genes[i] = gene{
			angle:    r.nearestValidAngle(angleFrom.genes[i].angle),
			quantity: clampQuantity(qtyFrom.genes[i].quantity, r.max),
		}
	}
	return child
}

// mutate perturbs quantities, resamples angles, occasionally moves quantity
// between regions and renormalizes.
func (g *geneticOptimizer) mutate(c *chromosome) {
	rate := g.config.MutationRate
	angleRate := math.Min(1, 2*rate)

	for i, r := range g.regions {
		if g.rng.Float64() < rate {
			step := max(1, int(math.Round(quantityStepFraction*float64(r.max))))
			delta := g.rng.Intn(2*step+1) - step
			c.genes[i].quantity = clampQuantity(c.genes[i].quantity+delta, r.max)
		}
		if g.rng.Float64() < angleRate {
			c.genes[i].angle = r.validAngles[g.rng.Intn(len(r.validAngles))]
		}
	}

	if len(g.regions) > 1 && g.rng.Float64() < transferRate {
		g.transfer(c)
	}

	g.renormalize(c)
}

// transfer moves a random amount of quantity from one region to another,
// bounded by what the source holds and what the destination can take.
func (g *geneticOptimizer) transfer(c *chromosome) {
	n := len(g.regions)
	src := g.rng.Intn(n)
	dst := g.rng.Intn(n - 1)
	if dst >= src {
		dst++
	}
	headroom := g.regions[dst].max - c.genes[dst].quantity
	limit := min(c.genes[src].quantity, headroom)
	if limit <= 0 {
		return
	}
	amount := 1 + g.rng.Intn(limit)
	c.genes[src].quantity -= amount
	c.genes[dst].quantity += amount
}

// renormalize scales the quantities so they sum to the target, never
// exceeding a region maximum, then corrects rounding one unit at a time.
// Regions already in use absorb corrections before idle ones are activated.
func (g *geneticOptimizer) renormalize(c *chromosome) {
	sum := 0
	for i, r := range g.regions {
		c.genes[i].quantity = clampQuantity(c.genes[i].quantity, r.max)
		sum += c.genes[i].quantity
	}

	switch {
	case sum == 0 && g.target > 0:
		capacity := 0
		for _, r := range g.regions {
			capacity += r.max
		}
		for i, r := range g.regions {
			c.genes[i].quantity = int(float64(g.target) * float64(r.max) / float64(capacity))
		}
	case sum != g.target:
		scale := float64(g.target) / float64(sum)
		for i, r := range g.regions {
			c.genes[i].quantity = clampQuantity(int(float64(c.genes[i].quantity)*scale), r.max)
		}
	}

	g.correct(c)
}

// correct adds or removes single units until the quantities sum to the target.
func (g *geneticOptimizer) correct(c *chromosome) {
	diff := g.target
	for _, gn := range c.genes {
		diff -= gn.quantity
	}

	for _, activeOnly := range []bool{true, false} {
		for diff != 0 {
			var eligible []int
			for i, r := range g.regions {
				q := c.genes[i].quantity
				if activeOnly && q == 0 {
					continue
				}
				if (diff > 0 && q < r.max) || (diff < 0 && q > 0) {
					eligible = append(eligible, i)
				}
			}
			if len(eligible) == 0 {
				break
			}

			// Spread the difference in chunks, starting at a random region
			chunk := (abs(diff) + len(eligible) - 1) / len(eligible)
			start := g.rng.Intn(len(eligible))
			for k := 0; k < len(eligible) && diff != 0; k++ {
				i := eligible[(start+k)%len(eligible)]
				if diff > 0 {
					step := min(chunk, diff, g.regions[i].max-c.genes[i].quantity)
					c.genes[i].quantity += step
					diff -= step
				} else {
					step := min(chunk, -diff, c.genes[i].quantity)
					c.genes[i].quantity -= step
					diff += step
				}
			}
		}
		if diff == 0 {
			break
		}
	}
}

func clampQuantity(q, maxQty int) int {
	if q < 0 {
		return 0
	}
	if q > maxQty {
		return maxQty
	}
	return q
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// decode converts a chromosome into a plan candidate. Regions with zero
// quantity are left out. Item ids are derived from region keys so identical
// runs produce identical plans.
func (g *geneticOptimizer) decode(c chromosome) Candidate {
	items := make([]model.PlanItem, 0, len(c.genes))
	for i, gn := range c.genes {
		if gn.quantity <= 0 {
			continue
		}
		key := g.regions[i].key
		items = append(items, model.PlanItem{
			ID:        key + "-ga",
			RegionKey: key,
			Angle:     gn.angle,
			Quantity:  gn.quantity,
		})
	}
	return Candidate{
		Items:        items,
		TotalPoints:  c.total,
		AverageGrade: c.avg,
		Score:        c.score,
	}
}

// copyChromosome creates a deep copy of a chromosome.
func (g *geneticOptimizer) copyChromosome(c chromosome) chromosome {
	genes := make([]gene, len(c.genes))
	copy(genes, c.genes)
	return chromosome{genes: genes, score: c.score, total: c.total, avg: c.avg}
}
