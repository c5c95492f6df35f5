// Package server carries the embedded Python runtime payload for the
// cortex-embed sidecar: per-platform pip packages (generated into
// data/ by generate/main.go) and the embedding service script itself.
package server

//go:generate go run ./generate

// EmbeddingScript is the Python service cortex-embed runs inside the
// embedded interpreter: a loopback HTTP server exposing GET / as a
// health check and POST /embed returning normalized vectors for a
// batch of texts. Query and passage modes use the BGE instruction
// prefixes the model was trained with.
const EmbeddingScript = `import json
from http.server import BaseHTTPRequestHandler, HTTPServer

from sentence_transformers import SentenceTransformer

MODEL_NAME = "BAAI/bge-small-en-v1.5"
PORT = 8121

model = SentenceTransformer(MODEL_NAME)


class Handler(BaseHTTPRequestHandler):
    def do_GET(self):
        self.send_response(200)
        self.send_header("Content-Type", "application/json")
        self.end_headers()
        self.wfile.write(json.dumps({"status": "ok", "model": MODEL_NAME}).encode())

    def do_POST(self):
        if self.path != "/embed":
            self.send_response(404)
            self.end_headers()
            return
        length = int(self.headers.get("Content-Length", 0))
        body = json.loads(self.rfile.read(length) or b"{}")
        texts = body.get("texts", [])
        mode = body.get("mode", "passage")
        prefix = "query: " if mode == "query" else "passage: "
        vectors = model.encode(
            [prefix + t for t in texts],
            normalize_embeddings=True,
        )
        payload = json.dumps({"embeddings": [v.tolist() for v in vectors]}).encode()
        self.send_response(200)
        self.send_header("Content-Type", "application/json")
        self.send_header("Content-Length", str(len(payload)))
        self.end_headers()
        self.wfile.write(payload)

    def log_message(self, fmt, *args):
        pass


if __name__ == "__main__":
    HTTPServer(("127.0.0.1", PORT), Handler).serve_forever()
`
