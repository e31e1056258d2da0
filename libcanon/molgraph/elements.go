package molgraph

// elementSymbols is indexed by atomic number; index 0 is the unknown atom.
var elementSymbols = [...]string{
	"X",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
}

var elementBySymbol = func() map[string]uint32 {
	m := make(map[string]uint32, len(elementSymbols))
	for num, sym := range elementSymbols {
		m[sym] = uint32(num)
	}
	return m
}()

// ElementSymbol returns the symbol for the given atomic number, or "X" if it is unknown.
func ElementSymbol(atomicNum uint32) string {
	if int(atomicNum) < len(elementSymbols) {
		return elementSymbols[atomicNum]
	}
	return elementSymbols[0]
}

// AtomicNumber returns the atomic number of the given element symbol.
func AtomicNumber(symbol string) (uint32, bool) {
	num, ok := elementBySymbol[symbol]
	return num, ok
}
