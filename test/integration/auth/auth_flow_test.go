// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

//go:build integration

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/runcoach/runcoach/internal/web"
)

type response struct {
	status int
	body   map[string]any
	cookie *http.Cookie
}

func call(method, path, body string, cookie *http.Cookie) response {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	res := response{status: rec.Code}
	Expect(json.Unmarshal(rec.Body.Bytes(), &res.body)).To(Succeed(), rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == web.SessionCookie {
			res.cookie = c
		}
	}
	return res
}

const registerAda = `{"invite_code":"ABC123","name":"Ada","email":"a@x.com","password":"longenough1"}`

var _ = Describe("Auth flow", func() {
	BeforeEach(func() {
		env.truncate()
	})

	It("registers, resolves the session and rejects bad credentials", func() {
		By("registering with an invite code")
		reg := call(http.MethodPost, "/auth/register", registerAda, nil)
		Expect(reg.status).To(Equal(http.StatusCreated))
		Expect(reg.body).To(HaveKeyWithValue("email", "a@x.com"))
		Expect(reg.body).NotTo(HaveKey("password_hash"))
		Expect(reg.cookie).NotTo(BeNil())
		Expect(reg.cookie.HttpOnly).To(BeTrue())
		Expect(reg.cookie.MaxAge).To(Equal(604800))

		By("resolving the session cookie")
		me := call(http.MethodGet, "/auth/me", "", reg.cookie)
		Expect(me.status).To(Equal(http.StatusOK))
		Expect(me.body).To(HaveKeyWithValue("email", "a@x.com"))
		Expect(me.body).To(HaveKeyWithValue("id", reg.body["id"]))
		Expect(me.body).To(HaveKeyWithValue("created_at", reg.body["created_at"]))

		By("reusing the invite code")
		dup := call(http.MethodPost, "/auth/register",
			`{"invite_code":"ABC123","name":"Bob","email":"b@x.com","password":"longenough1"}`, nil)
		Expect(dup.status).To(Equal(http.StatusBadRequest))
		Expect(dup.body).To(HaveKeyWithValue("detail", "Invite code already used"))

		By("logging in with the wrong password")
		bad := call(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong-password"}`, nil)
		Expect(bad.status).To(Equal(http.StatusUnauthorized))
		Expect(bad.body).To(HaveKeyWithValue("detail", "Invalid email or password"))

		By("logging in with the right password and mixed-case email")
		good := call(http.MethodPost, "/auth/login", `{"email":"A@X.com","password":"longenough1"}`, nil)
		Expect(good.status).To(Equal(http.StatusOK))
		Expect(good.cookie).NotTo(BeNil())
	})

	It("rejects a second account for the same email", func() {
		Expect(call(http.MethodPost, "/auth/register", registerAda, nil).status).To(Equal(http.StatusCreated))

		dup := call(http.MethodPost, "/auth/register",
			`{"invite_code":"XYZ789","name":"Ada again","email":"a@x.com","password":"longenough1"}`, nil)
		Expect(dup.status).To(Equal(http.StatusBadRequest))
		Expect(dup.body).To(HaveKeyWithValue("detail", "Email already registered"))
	})

	It("reports missing and garbage sessions", func() {
		none := call(http.MethodGet, "/auth/me", "", nil)
		Expect(none.status).To(Equal(http.StatusUnauthorized))
		Expect(none.body).To(HaveKeyWithValue("detail", "Not authenticated"))

		garbage := call(http.MethodGet, "/auth/me", "", &http.Cookie{Name: web.SessionCookie, Value: "garbage"})
		Expect(garbage.status).To(Equal(http.StatusUnauthorized))
		Expect(garbage.body).To(HaveKeyWithValue("detail", "Invalid or expired session"))
	})

	It("reports a session whose user was deleted", func() {
		reg := call(http.MethodPost, "/auth/register", registerAda, nil)
		Expect(reg.status).To(Equal(http.StatusCreated))
		env.truncate()

		me := call(http.MethodGet, "/auth/me", "", reg.cookie)
		Expect(me.status).To(Equal(http.StatusUnauthorized))
		Expect(me.body).To(HaveKeyWithValue("detail", "User not found"))
	})

	It("logs out with or without a session", func() {
		out := call(http.MethodPost, "/auth/logout", "", nil)
		Expect(out.status).To(Equal(http.StatusOK))
		Expect(out.body).To(HaveKeyWithValue("message", "Logged out successfully"))
		Expect(out.cookie).NotTo(BeNil())
		Expect(out.cookie.MaxAge).To(BeNumerically("<", 0))
	})

	It("lets exactly one of two concurrent registrations claim an invite", func() {
		bodies := []string{
			`{"invite_code":"RACE1","name":"One","email":"one@x.com","password":"longenough1"}`,
			`{"invite_code":"RACE1","name":"Two","email":"two@x.com","password":"longenough1"}`,
		}
		statuses := make([]int, len(bodies))

		var wg sync.WaitGroup
		for i, body := range bodies {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				statuses[i] = call(http.MethodPost, "/auth/register", body, nil).status
			}()
		}
		wg.Wait()

		Expect(statuses).To(ConsistOf(http.StatusCreated, http.StatusBadRequest))
	})
})
