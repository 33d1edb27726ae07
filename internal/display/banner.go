package display

import (
	"fmt"
	"io"

	"github.com/backmassage/symguard/internal/term"
)

// PrintBanner prints the ASCII art banner and version; cyan when colors are
// enabled.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Cyan)
	fmt.Fprint(w, ` ____                   ____                     _
/ ___| _   _ _ __ ___  / ___|_   _  __ _ _ __ __| |
\___ \| | | | '_ `+"`"+` _ \| |  _| | | |/ _`+"`"+` | '__/ _`+"`"+` |
 ___) | |_| | | | | | | |_| | |_| | (_| | | | (_| |
|____/ \__, |_| |_| |_|\____|\__,_|\__,_|_|  \__,_|
       |___/
`)
	fmt.Fprint(w, term.NC)
	fmt.Fprintf(w, "%ssymlink audit %s%s\n\n", term.Bold, version, term.NC)
}
