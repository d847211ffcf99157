package chat

// Gemini Model IDs
//
// | Model Name              | API Model ID                | Use Case                       |
// |-------------------------|-----------------------------|--------------------------------|
// | Gemini 2.5 Flash        | gemini-2.5-flash            | Descriptions and suggestions   |
// | Gemini 2.5 Flash-Lite   | gemini-2.5-flash-lite       | High-throughput, lowest cost   |
// | Gemini 2.5 Flash Image  | gemini-2.5-flash-image      | Image output via generateContent |
// | Imagen 3                | imagen-3.0-generate-002     | Dedicated text-to-image        |
const (
	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini25FlashLite is for high-throughput, lowest cost.
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"

	// ModelGemini25FlashImage returns images from generateContent.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelImagen3 is the Imagen text-to-image model.
	ModelImagen3 = "imagen-3.0-generate-002"
)

// Defaults used when a constructor is given an empty model name.
const (
	DefaultTextModel        = ModelGemini25Flash
	DefaultImagenModel      = ModelImagen3
	DefaultGeminiImageModel = ModelGemini25FlashImage
)

func modelOrDefault(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
