package confset

// HartreeToEV converts energies and forces from the archives' native
// Hartree units to eV.
const HartreeToEV = 27.211386246

// atomicNumbers maps element symbols to atomic numbers. The table is
// deliberately restricted to the four elements the supported archive
// families contain; any other symbol is an error, not a skip.
var atomicNumbers = map[string]int{
	"H": 1,
	"C": 6,
	"N": 7,
	"O": 8,
}

// elementEnergies holds the per-atom baseline energy in Hartree for each
// supported atomic number (ANI-1x self energies). Subtracting the summed
// baseline turns an absolute energy label into an interaction energy.
var elementEnergies = map[int]float64{
	1: -0.500607632585,
	6: -37.8302333826,
	7: -54.5680045287,
	8: -75.0362229210,
}

// AtomicNumber returns the atomic number for an element symbol, and whether
// the symbol is in the supported table.
func AtomicNumber(symbol string) (int, bool) {
	z, ok := atomicNumbers[symbol]
	return z, ok
}

// ReferenceEnergy returns the total baseline energy of a composition in eV:
// the sum of per-atom self energies at the given atomic numbers, converted
// with HartreeToEV. Atomic numbers outside the table contribute zero; the
// symbol mapping has already rejected them by the time this runs.
func ReferenceEnergy(zs []int) float64 {
	var sum float64
	for _, z := range zs {
		sum += elementEnergies[z]
	}
	return sum * HartreeToEV
}
