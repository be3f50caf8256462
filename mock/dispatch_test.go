package mock

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type recorder struct {
	status  int
	headers map[string]string
	body    string
	sent    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{headers: map[string]string{}, sent: make(chan struct{}, 1)}
}

func (r *recorder) SetStatus(code int) {
	r.status = code
}

func (r *recorder) SetHeader(key, value string) {
	r.headers[key] = value
}

func (r *recorder) Send(body string) error {
	r.body = body
	r.sent <- struct{}{}
	return nil
}

var _ = Describe("Dispatch", func() {
	res := Response{
		Status:  http.StatusTeapot,
		Headers: map[string]string{"X-Ship": "Enterprise"},
		Body:    "tea, earl grey, hot",
	}

	It("Writes the response straight away without a delay", func() {
		rec := newRecorder()

		Expect(Dispatch(context.Background(), rec, res, 0)).To(Succeed())
		Expect(rec.status).To(Equal(http.StatusTeapot))
		Expect(rec.headers).To(Equal(res.Headers))
		Expect(rec.body).To(Equal(res.Body))
	})

	It("Holds the body back for the delay", func() {
		rec := newRecorder()
		start := time.Now()

		Expect(Dispatch(context.Background(), rec, res, 50*time.Millisecond)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically(">=", 50*time.Millisecond))
		Expect(rec.body).To(Equal(res.Body))
	})

	It("Abandons the body when the request goes away", func() {
		rec := newRecorder()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := Dispatch(ctx, rec, res, time.Minute)

		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		Expect(rec.status).To(Equal(http.StatusTeapot))
		Expect(rec.sent).ShouldNot(Receive())
	})

	It("Does not carry a delay over to the next response", func() {
		slow := newRecorder()
		fast := newRecorder()

		go func() {
			defer GinkgoRecover()
			Expect(Dispatch(context.Background(), slow, res, time.Second)).To(Succeed())
		}()

		start := time.Now()
		Expect(Dispatch(context.Background(), fast, NotFound(), 0)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
		Expect(fast.status).To(Equal(http.StatusNotFound))

		Eventually(slow.sent, 2*time.Second).Should(Receive())
	})

	Context("Over net/http", func() {
		It("Writes through an HTTPResponseWriter", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(Dispatch(r.Context(), NewHTTPResponseWriter(w), res, 10*time.Millisecond)).To(Succeed())
			}))
			defer server.Close()

			resp, err := http.Get(server.URL)
			Expect(err).ShouldNot(HaveOccurred())
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusTeapot))
			Expect(resp.Header.Get("X-Ship")).To(Equal("Enterprise"))
			Expect(string(body)).To(Equal(res.Body))
		})

		It("Cancels the delayed write when the client disconnects", func() {
			done := make(chan error, 1)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				done <- Dispatch(r.Context(), NewHTTPResponseWriter(w), res, time.Minute)
			}))
			defer server.Close()

			client := http.Client{Timeout: 50 * time.Millisecond}
			_, err := client.Get(server.URL)
			Expect(err).Should(HaveOccurred())

			var dispatchErr error
			Eventually(done, 2*time.Second).Should(Receive(&dispatchErr))
			Expect(dispatchErr).To(MatchError(context.Canceled))
		})
	})
})
