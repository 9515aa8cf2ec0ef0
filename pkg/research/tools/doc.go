// Package tools holds the leaf lookups the research workflows call: Tavily
// web search, arXiv metadata search, PDF text extraction, and semantic
// retrieval over a Chroma collection embedded with Ollama.
//
// Web and paper search never return errors. A failed lookup yields one
// result whose Err field is set, and callers decide how to render it.
package tools
