package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		metrics     *Metrics
		server      *Server
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		anyPath := regexp.MustCompile(".*")
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions} {
			ghttpServer.RouteToHandler(method, anyPath, server.ServeHTTP)
		}
	}

	BeforeEach(func() {
		db = newMockDB()
		metrics = NewMetrics()
		server = NewServerWithRouter(NewService(db, metrics), metrics, mux.NewRouter())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	post := func(path, body string) *http.Response {
		resp, err := http.Post(ghttpServer.URL()+path, "application/json", strings.NewReader(body))
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return resp
	}

	get := func(path string) *http.Response {
		resp, err := http.Get(ghttpServer.URL() + path)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response) map[string]any {
		defer resp.Body.Close()
		var body map[string]any
		ExpectWithOffset(1, json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		return body
	}

	Describe("handleProcessReceipt", func() {
		When("the receipt is valid", func() {
			It("should return status OK", func() {
				resp := post("/receipts/process", targetReceiptJSON)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})

			It("should return the new id", func() {
				body := decode(post("/receipts/process", targetReceiptJSON))
				Expect(body).To(Equal(map[string]any{"id": "test-id-123"}))
			})

			It("should store the points", func() {
				post("/receipts/process", targetReceiptJSON).Body.Close()
				Expect(db.records).To(HaveKeyWithValue("test-id-123", 28))
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request with an error body", func() {
				resp := post("/receipts/process", "{not json")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decode(resp)).To(HaveKeyWithValue("error", "Invalid JSON in body"))
			})
		})

		When("a field has the wrong JSON type", func() {
			It("should return status Bad Request", func() {
				resp := post("/receipts/process", `{"retailer": 12}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decode(resp)).To(HaveKeyWithValue("error", "Invalid JSON in body"))
			})
		})

		When("a required field is missing", func() {
			var resp *http.Response

			BeforeEach(func() {
				var receipt map[string]any
				Expect(json.Unmarshal([]byte(targetReceiptJSON), &receipt)).To(Succeed())
				delete(receipt, "purchaseTime")
				body, err := json.Marshal(receipt)
				Expect(err).NotTo(HaveOccurred())
				resp = post("/receipts/process", string(body))
			})

			It("should return status Bad Request with the reason", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decode(resp)).To(Equal(map[string]any{"error": "Missing required field: purchaseTime"}))
			})

			It("should not store anything", func() {
				resp.Body.Close()
				Expect(db.records).To(BeEmpty())
			})
		})

		When("the total does not match", func() {
			It("should return status Bad Request with the reason", func() {
				resp := post("/receipts/process", strings.Replace(targetReceiptJSON, `"total": "35.35"`, `"total": "35.36"`, 1))
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decode(resp)).To(HaveKeyWithValue("error", ErrTotalMismatch.Error()))
			})
		})

		When("the store fails", func() {
			BeforeEach(func() {
				db.createErr = errors.New("disk full")
			})

			It("should return status Internal Server Error without details", func() {
				resp := post("/receipts/process", targetReceiptJSON)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(decode(resp)).To(Equal(map[string]any{"error": "Internal server error"}))
			})
		})

		When("request method is not POST", func() {
			It("should return status Method Not Allowed", func() {
				resp := get("/receipts/process")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
			})
		})
	})

	Describe("handleGetPoints", func() {
		When("the id is known", func() {
			BeforeEach(func() {
				db.records["abc-123"] = 109
			})

			It("should return the points", func() {
				resp := get("/receipts/abc-123/points")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(decode(resp)).To(Equal(map[string]any{"points": 109.0}))
			})
		})

		When("the id is unknown", func() {
			It("should return status Not Found", func() {
				resp := get("/receipts/does-not-exist/points")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				Expect(decode(resp)).To(Equal(map[string]any{"error": "Receipt not found"}))
			})
		})

		When("the store fails", func() {
			BeforeEach(func() {
				db.lookupErr = errors.New("io error")
			})

			It("should return status Internal Server Error", func() {
				resp := get("/receipts/abc-123/points")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})

		When("request method is not GET", func() {
			It("should return status Method Not Allowed", func() {
				resp := post("/receipts/abc-123/points", "{}")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
			})
		})
	})

	Describe("round trip", func() {
		It("returns the points computed for a processed receipt", func() {
			id := decode(post("/receipts/process", cornerMarketReceiptJSON))["id"].(string)
			body := decode(get("/receipts/" + id + "/points"))
			Expect(body).To(Equal(map[string]any{"points": 109.0}))
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/receipts/process", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("sets headers on normal responses", func() {
			resp := get("/receipts/unknown/points")
			defer resp.Body.Close()
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("metrics", func() {
		It("exposes the service counters", func() {
			post("/receipts/process", targetReceiptJSON).Body.Close()

			resp := get("/metrics")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`receipt_processor_receipts_processed_total{outcome="accepted"} 1`))
		})

		When("metrics are disabled", func() {
			BeforeEach(func() {
				server = NewServer(NewService(db, nil), nil)
				setupServer()
			})

			It("does not serve /metrics", func() {
				resp := get("/metrics")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})
})
