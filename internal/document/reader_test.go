package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockRecognizer is a mock implementation of Recognizer
type mockRecognizer struct {
	text   string
	err    error
	images [][]byte
}

func (m *mockRecognizer) Recognize(ctx context.Context, img []byte) (string, error) {
	m.images = append(m.images, img)
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// mockRasterizer is a mock implementation of Rasterizer
type mockRasterizer struct {
	pages int
	err   error
	calls int
}

func (m *mockRasterizer) Rasterize(data []byte) ([]image.Image, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	images := make([]image.Image, m.pages)
	for i := range images {
		images[i] = testImage()
	}
	return images, nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.Black)
	}
	return img
}

func pngBytes() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage())).To(Succeed())
	return buf.Bytes()
}

// minimalPDF assembles a one-page PDF around a content stream, with a
// correct cross-reference table.
func minimalPDF(content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Resources << >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

var _ = Describe("Reader", func() {
	var (
		dir        string
		path       string
		recognizer *mockRecognizer
		rasterizer *mockRasterizer
		enhance    bool
		reader     *Reader
		doc        *Document
		err        error
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		recognizer = &mockRecognizer{text: "Acme Corp\nPO# 123"}
		rasterizer = &mockRasterizer{pages: 2}
		enhance = false
	})

	JustBeforeEach(func() {
		var ras Rasterizer
		if rasterizer != nil {
			ras = rasterizer
		}
		reader = NewReaderWithDeps(recognizer, ras, enhance, nil)
		doc, err = reader.Read(context.Background(), path)
	})

	writeFile := func(name string, data []byte) {
		path = filepath.Join(dir, name)
		Expect(os.WriteFile(path, data, 0644)).To(Succeed())
	}

	When("reading an image", func() {
		BeforeEach(func() {
			writeFile("scan.PNG", pngBytes())
		})

		It("should return the recognized text only", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Text).To(Equal("Acme Corp\nPO# 123\n"))
			Expect(doc.Tables).To(BeEmpty())
			Expect(doc.ShipTo).To(BeEmpty())
			Expect(doc.Attn).To(BeEmpty())
		})

		It("should pass a PNG to the recognizer", func() {
			Expect(recognizer.images).To(HaveLen(1))
			Expect(recognizer.images[0][:4]).To(Equal([]byte("\x89PNG")))
		})

		When("enhancement is enabled", func() {
			BeforeEach(func() {
				enhance = true
			})

			It("should still recognize the image", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(recognizer.images).To(HaveLen(1))
			})
		})

		When("OCR fails", func() {
			BeforeEach(func() {
				recognizer.err = errors.New("tesseract missing")
			})

			It("should return an error", func() {
				Expect(err).To(MatchError(ContainSubstring("tesseract missing")))
			})
		})
	})

	When("the image is corrupt", func() {
		BeforeEach(func() {
			writeFile("scan.jpg", []byte("not an image"))
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
			Expect(recognizer.images).To(BeEmpty())
		})
	})

	When("the file type is unsupported", func() {
		BeforeEach(func() {
			writeFile("notes.txt", []byte("hello"))
		})

		It("should return ErrUnsupportedFormat", func() {
			Expect(errors.Is(err, ErrUnsupportedFormat)).To(BeTrue())
		})
	})

	When("the file does not exist", func() {
		BeforeEach(func() {
			path = filepath.Join(dir, "missing.pdf")
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the PDF is corrupt", func() {
		BeforeEach(func() {
			writeFile("broken.pdf", []byte("this is not a pdf"))
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
			Expect(doc).To(BeNil())
		})
	})

	When("the PDF has no text layer", func() {
		BeforeEach(func() {
			writeFile("scanned.pdf", minimalPDF("0 0 0 rg"))
		})

		It("should OCR the rendered pages", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(rasterizer.calls).To(Equal(1))
			Expect(recognizer.images).To(HaveLen(2))
			Expect(doc.Text).To(Equal("Acme Corp\nPO# 123\nAcme Corp\nPO# 123\n"))
		})

		When("rendering fails", func() {
			BeforeEach(func() {
				rasterizer.err = errors.New("no mupdf")
			})

			It("should return the empty document", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(doc.Text).To(Equal("\n"))
				Expect(recognizer.images).To(BeEmpty())
			})
		})
	})

	When("the PDF draws a ruled table without text", func() {
		BeforeEach(func() {
			rasterizer = nil
			writeFile("grid.pdf", minimalPDF(
				"50 600 201 1 re f\n50 580 201 1 re f\n50 560 201 1 re f\n"+
					"50 560 1 41 re f\n150 560 1 41 re f\n250 560 1 41 re f"))
		})

		It("should read the ruling rectangles", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Tables).To(Equal([]Table{{{"", ""}, {"", ""}}}))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should detect HEIC brands", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic0000"))).To(BeTrue())
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypmif10000"))).To(BeTrue())
	})

	It("should reject other data", func() {
		Expect(isHEICFormat(pngBytes())).To(BeFalse())
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
	})
})
