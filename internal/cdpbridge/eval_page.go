package cdpbridge

import "fmt"

func jsCurrentLocation() string {
	return wrapJSEval(`
return JSON.stringify({ok:true,data:{location:String(location.href)}});
`)
}

func jsDetailField(label string) string {
	return wrapJSEval(fmt.Sprintf(jsContextHelpers+`
var value = _fieldValue(%s);
if (value === null) return JSON.stringify({ok:true,data:{found:false,value:""}});
return JSON.stringify({ok:true,data:{found:true,value:value}});
`, jsString(label)))
}

func jsHeading(prefix string) string {
	return wrapJSEval(fmt.Sprintf(jsContextHelpers+`
var text = _headingText(%s);
if (text === null) return JSON.stringify({ok:true,data:{found:false,text:""}});
return JSON.stringify({ok:true,data:{found:true,text:text}});
`, jsString(prefix)))
}
