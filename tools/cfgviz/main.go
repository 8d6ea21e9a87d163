// Command cfgviz is a small HTTP visualizer serving the DOT rendering of a
// hex-encoded code blob's decoded CFG: POST the hex string, get back
// Graphviz DOT. The byte-to-instruction mapping below is a small
// illustrative decoder, not a real disassembler — plugging in a genuine
// internal/translator.Translator for a target ISA is left to the caller,
// since instruction lifting is treated as an external collaborator
// throughout this module.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/binlift/bin2ir/internal/abi"
	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/cfgdump"
	"github.com/binlift/bin2ir/internal/config"
	"github.com/binlift/bin2ir/internal/debuginfo"
	"github.com/binlift/bin2ir/internal/decoder"
	"github.com/binlift/bin2ir/internal/image"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>bin2ir cfgviz</title></head>
<body>
<h1>bin2ir CFG visualizer</h1>
<form id="f">
<textarea name="code" rows="6" cols="80" placeholder="hex-encoded bytes, e.g. e8 05 00 00 00 c3"></textarea><br>
<button type="submit">Visualize</button>
</form>
<pre id="out"></pre>
<script>
document.getElementById('f').addEventListener('submit', async function(e) {
  e.preventDefault();
  const code = this.code.value;
  const res = await fetch('/visualize', {method: 'POST', body: code});
  document.getElementById('out').textContent = await res.text();
});
</script>
</body>
</html>`

func main() {
	http.HandleFunc("/", serveIndex)
	http.HandleFunc("/visualize", handleVisualize)

	fmt.Println("Starting bin2ir cfgviz at http://localhost:8080")
	if err := http.ListenAndServe(":8080", nil); err != nil {
		log.Fatal(err)
	}
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	io.WriteString(w, indexHTML)
}

func handleVisualize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusInternalServerError)
		return
	}

	hexStr := strings.TrimSpace(string(body))
	hexStr = strings.TrimPrefix(hexStr, "0x")
	hexStr = strings.ReplaceAll(hexStr, "\n", "")
	hexStr = strings.ReplaceAll(hexStr, " ", "")

	code, err := hex.DecodeString(hexStr)
	if err != nil {
		http.Error(w, "Invalid hex string: "+err.Error(), http.StatusBadRequest)
		return
	}

	dot, err := decodeToDOT(code)
	if err != nil {
		http.Error(w, "Decode error: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, dot)
}

func decodeToDOT(code []byte) (string, error) {
	const base = addr.Address(0x1000)
	img := image.NewFlat(base, code)
	abiCtx := abi.NewGeneric("SP", 64)
	allowed := addr.NewSet(addr.NewRange(base, base.Add(uint64(len(code)))))

	dec := decoder.New(img, illustrativeTranslator{}, abiCtx, debuginfo.NewFake(), allowed, addr.NewSet(), base, nil)
	if _, err := dec.Run(&config.Config{Mode: "default"}); err != nil {
		return "", err
	}
	return cfgdump.DumpDOT(dec.Module()), nil
}
