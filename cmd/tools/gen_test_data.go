package main

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
)

func main() {
	// Dossier de destination pour les tests d'upload
	outputDir := "./test_data"
	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		panic(fmt.Sprintf("Impossible de créer le dossier : %v", err))
	}

	fmt.Println("🚀 chatline : Génération des fichiers de test...")

	// 1. Génération d'une image PNG (type accepté par l'intake)
	genPNG(filepath.Join(outputDir, "capture_test.png"))

	// 2. Génération d'une image JPEG (type accepté par l'intake)
	genJPEG(filepath.Join(outputDir, "photo_test.jpg"))

	// 3. Fichier texte déguisé en image, pour vérifier le rejet par sniffing
	genFakeImage(filepath.Join(outputDir, "pas_une_image.png"))

	fmt.Println("\n✅ Prêt ! Envoie ces fichiers sur POST /api/messages/send/{userID}")
}

// genPNG crée un PNG de 800x600 avec un dégradé
func genPNG(path string) {
	img := gradient(800, 600)

	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("❌ Erreur PNG : %v\n", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		fmt.Printf("❌ Erreur PNG : %v\n", err)
	} else {
		fmt.Printf("📸 PNG généré : %s\n", path)
	}
}

// genJPEG crée un JPEG compressé à partir du même dégradé
func genJPEG(path string) {
	img := gradient(640, 480)

	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("❌ Erreur JPEG : %v\n", err)
		return
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 80}); err != nil {
		fmt.Printf("❌ Erreur JPEG : %v\n", err)
	} else {
		fmt.Printf("📸 JPEG généré : %s\n", path)
	}
}

// genFakeImage écrit du texte avec une extension .png : l'intake doit le
// refuser puisque les magic bytes ne correspondent pas
func genFakeImage(path string) {
	content := []byte("ceci n'est pas une image, le sniffing doit dire text/plain")
	if err := os.WriteFile(path, content, 0644); err != nil {
		fmt.Printf("❌ Erreur fichier piège : %v\n", err)
	} else {
		fmt.Printf("🪤 Fichier piège généré : %s\n", path)
	}
}

func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})

	// Remplissage avec un dégradé bleu pour le style
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			c := color.RGBA{uint8(x % 255), 100, 200, 0xff}
			img.Set(x, y, c)
		}
	}
	return img
}
