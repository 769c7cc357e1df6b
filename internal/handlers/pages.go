package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The storefront is rendered in the browser; every page route serves the
// same document and the script picks the view from location.pathname.
const pageContent = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Coffee Card</title>
    <link rel="stylesheet" href="https://maxcdn.bootstrapcdn.com/bootstrap/4.0.0/css/bootstrap.min.css">
</head>
<body class="container py-4">
    <nav class="mb-4">
        <a href="/">Home</a> |
        <a href="/login">Sign in</a> |
        <a href="/register">Sign up</a> |
        <a href="#" id="logout">Logout</a>
        <span id="who" class="float-right"></span>
    </nav>
    <main id="view"></main>
    <aside id="cart" class="mt-4"></aside>
<script>
(function () {
    var tab = sessionStorage.getItem("tab");
    if (!tab) {
        tab = crypto.randomUUID();
        sessionStorage.setItem("tab", tab);
    }
    function api(method, path, body) {
        return fetch("/api" + path, {
            method: method,
            headers: {"Content-Type": "application/json", "X-Tab-ID": tab},
            body: body ? JSON.stringify(body) : undefined
        }).then(function (res) {
            if (res.status === 204) { return {}; }
            return res.json().then(function (data) {
                if (!res.ok) { throw data; }
                return data;
            });
        });
    }
    function go(path) { if (path && path !== location.pathname) { location.href = path; } }
    function el(tag, text, attrs) {
        var node = document.createElement(tag);
        if (text) { node.textContent = text; }
        Object.keys(attrs || {}).forEach(function (k) { node.setAttribute(k, attrs[k]); });
        return node;
    }
    function fill(parent, nodes) {
        parent.replaceChildren.apply(parent, nodes);
    }
    function renderCart(c) {
        var rows = [el("h4", "Your Order (" + c.count + ")")];
        c.items.forEach(function (i) {
            var row = el("div", i.name + " x" + i.quantity + " ");
            var remove = el("button", "-");
            remove.addEventListener("click", function () {
                api("DELETE", "/cart/items/" + encodeURIComponent(i.id)).then(renderCart);
            });
            row.appendChild(remove);
            rows.push(row);
        });
        rows.push(el("strong", "Total: $" + c.total));
        fill(document.getElementById("cart"), rows);
    }
    document.getElementById("logout").addEventListener("click", function (e) {
        e.preventDefault();
        api("POST", "/logout").then(function (r) { go(r.redirect || "/"); });
    });
    function form(fields, submit) {
        var v = document.getElementById("view");
        var nodes = fields.map(function (f) {
            var input = el("input", "", {"class": "form-control mb-2", name: f, placeholder: f});
            if (f === "password") { input.type = "password"; }
            return input;
        });
        var button = el("button", "Submit", {"class": "btn btn-primary"});
        var errLine = el("p", "", {"class": "text-danger"});
        fill(v, nodes.concat([button, errLine]));
        button.addEventListener("click", function () {
            var body = {};
            nodes.forEach(function (input) { body[input.name] = input.value; });
            api("POST", submit, body).then(function (r) { go(r.redirect || "/"); })
                .catch(function (err) { errLine.textContent = err.error || "Error"; });
        });
    }
    function menu() {
        var v = document.getElementById("view");
        var id = new URLSearchParams(location.search).get("restaurant") || "0";
        api("GET", "/restaurants/" + encodeURIComponent(id) + "/dishes").then(function (m) {
            if (m.message) { fill(v, [el("h1", m.message)]); return; }
            fill(v, m.restaurant.dishes.map(function (d) {
                var card = el("div", "", {"class": "card m-2 p-2"});
                if (d.image) {
                    card.appendChild(el("img", "", {src: d.image.url, style: "height:150px;width:150px"}));
                }
                card.appendChild(el("h5", d.name));
                card.appendChild(el("p", d.description));
                var add = el("button", "+ Add To Order", {"class": "btn btn-outline-primary"});
                add.addEventListener("click", function () { api("POST", "/cart/items", d).then(renderCart); });
                card.appendChild(add);
                return card;
            }));
        }).catch(function (err) {
            fill(v, [el("p", err.error || "Error with Menu Items")]);
        });
    }
    api("GET", "/session").then(function (s) {
        document.getElementById("who").textContent = s.user ? s.user.username : "";
        if (s.isAuthenticated) {
            var events = new EventSource("/api/events?tab=" + encodeURIComponent(tab));
            events.addEventListener("navigate", function (e) {
                events.close();
                go(JSON.parse(e.data).path);
            });
        }
    });
    api("GET", "/cart").then(renderCart);
    if (location.pathname === "/login") { form(["identifier", "password"], "/login"); }
    else if (location.pathname === "/register") { form(["username", "email", "password"], "/register"); }
    else { menu(); }
})();
</script>
</body>
</html>
`

func RegisterPages(router gin.IRouter) {
	for _, path := range []string{"/", "/login", "/register"} {
		router.GET(path, servePage)
	}
}

func servePage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(pageContent))
}
