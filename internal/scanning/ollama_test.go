package scanning

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server      *ghttp.Server
		recognizer  *Ollama
		image       []byte
		contentType string
		lines       []string
		err         error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		recognizer = NewOllama(server.URL()+"/", "llava:test")
		image = testPNG(10, 10)
		contentType = "image/png"
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		lines, err = recognizer.Recognize(image, contentType)
	})

	When("the model transcribes the receipt", func() {
		var captured ollamaChatRequest

		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, err := io.ReadAll(r.Body)
					Expect(err).NotTo(HaveOccurred())
					Expect(json.Unmarshal(body, &captured)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```\nCORNER STORE\n\nTotal 3.00\n```"},
					Done:    true,
				}),
			))
		})

		It("should return the transcribed lines", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"CORNER STORE", "", "Total 3.00"}))
		})

		It("should send the model, prompt and image", func() {
			Expect(captured.Model).To(Equal("llava:test"))
			Expect(captured.Stream).To(BeFalse())
			Expect(captured.Messages).To(HaveLen(2))
			Expect(captured.Messages[1].Content).To(Equal(transcriptionPrompt))
			Expect(captured.Messages[1].Images).To(ConsistOf(base64.StdEncoding.EncodeToString(image)))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"error":"model not found"}`))
		})

		It("should include the status and body", func() {
			Expect(err).To(MatchError(ContainSubstring("status 404")))
			Expect(err).To(MatchError(ContainSubstring("model not found")))
		})
	})

	When("the response is not JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "oops"))
		})

		It("should return a decoding error", func() {
			Expect(err).To(MatchError(ContainSubstring("decoding response")))
		})
	})

	When("the image cannot be converted", func() {
		BeforeEach(func() {
			image = []byte("garbage")
			contentType = "image/jpeg"
		})

		It("should not call the API", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})
})
