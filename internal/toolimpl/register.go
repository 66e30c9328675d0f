package toolimpl

import (
	"mnemex/internal/embedding"
	"mnemex/internal/graph"
	"mnemex/internal/retrieval"
	"mnemex/internal/tools"
)

// Config bundles every collaborator needed to build the tool set: the
// text-extraction and generative-model HTTP clients, the embedding
// engine configuration, the object store and graph service, the
// retrieval engine, and the optional OCR/vision/ASR engines that
// default to their stub implementations when nil.
type Config struct {
	Tika       *TikaClient
	Generative *GenerativeClient
	Embedding  embedding.Config
	Vectors    VectorStorer
	Graph      *graph.Service
	Retriever  *retrieval.Engine

	OCR         OCREngine
	Vision      VisionEmbedder
	Classifier  ZeroShotClassifier
	Transcriber Transcriber
}

// RegisterAll builds and registers every tool implementation into
// reg. The embedding engine is wrapped in a single lazily-built,
// retry-on-failure singleton shared by text_embed across calls.
func RegisterAll(reg *tools.Registry, cfg Config) {
	engine := newModelSingleton(cfg.Embedding)

	reg.MustRegister(MimeDetectTool())
	reg.MustRegister(DocParseTool(cfg.Tika))
	reg.MustRegister(ASRTool(cfg.Transcriber))
	reg.MustRegister(OCRTool(cfg.OCR))
	reg.MustRegister(CaptionTool(cfg.Generative, cfg.Classifier))
	reg.MustRegister(SummarizerTool(cfg.Generative))
	reg.MustRegister(ExtractorTool(cfg.Generative))
	reg.MustRegister(TextEmbedTool(engine, cfg.Vectors))
	reg.MustRegister(VisionEmbedTool(cfg.Vision, cfg.Vectors))
	reg.MustRegister(GraphBuilderTool(cfg.Graph))
	reg.MustRegister(RetrievalTool(cfg.Retriever))
	reg.MustRegister(WeaverTool(cfg.Generative))
	reg.MustRegister(VerifierTool(cfg.Generative))
}
